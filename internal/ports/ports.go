package ports

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"NoticeHub/internal/domain"
)

// ErrDuplicateLink is returned by NoticeRepository.Insert when the link
// unique constraint rejects the row. Callers treat it as "already
// exists, retry as update".
var ErrDuplicateLink = errors.New("notice link already exists")

// DocumentFetcher retrieves a navigable document tree for a URL.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// NoticeRepository persists notices keyed by their natural link identity.
type NoticeRepository interface {
	FindByLink(ctx context.Context, link string) (*domain.Notice, error)
	Insert(ctx context.Context, n *domain.Notice) error
	Update(ctx context.Context, n *domain.Notice) error
	ExistsByLink(ctx context.Context, link string) (bool, error)
	ExistsBySourceType(ctx context.Context, sourceType string) (bool, error)
	CountBySourceTypeCreatedAfter(ctx context.Context, sourceType string, after time.Time) (int, error)
	// ReplaceKeywords swaps the cached matched-keyword set in one unit
	// of work (clear-then-add).
	ReplaceKeywords(ctx context.Context, noticeID uuid.UUID, keywordIDs []int64) error
	All(ctx context.Context) ([]domain.Notice, error)
}

// KeywordRepository persists GLOBAL and PERSONAL keywords.
type KeywordRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Keyword, error)
	FindByScope(ctx context.Context, scope domain.Scope) ([]domain.Keyword, error)
	FindByOwner(ctx context.Context, ownerID int64) ([]domain.Keyword, error)
	ExistsByScopeAndPhrase(ctx context.Context, scope domain.Scope, phrase string) (bool, error)
	Insert(ctx context.Context, k *domain.Keyword) error
	Delete(ctx context.Context, id int64) error
}

// PreferenceRepository stores one subscription mode per (user, sourceType).
type PreferenceRepository interface {
	// Mode returns ModeNone when the user holds no preference for the type.
	Mode(ctx context.Context, userID int64, sourceType string) (domain.Mode, error)
	SetMode(ctx context.Context, userID int64, sourceType string, mode domain.Mode) error
	UserIDsByTypeAndMode(ctx context.Context, sourceType string, mode domain.Mode) ([]int64, error)
}

// KeywordLinkRepository stores explicit (user, sourceType, keyword) links.
type KeywordLinkRepository interface {
	Add(ctx context.Context, link *domain.SubscriptionKeywordLink) error
	Remove(ctx context.Context, userID int64, sourceType string, keywordID int64) error
	FindByUserAndType(ctx context.Context, userID int64, sourceType string) ([]domain.SubscriptionKeywordLink, error)
	// LinkedKeywords joins links with their keywords, projecting only
	// what fanout matching needs.
	LinkedKeywords(ctx context.Context, userID int64, sourceType string) ([]domain.Keyword, error)
	UserIDsByTypeAndKeywordIDs(ctx context.Context, sourceType string, keywordIDs []int64) ([]int64, error)
	ExistsByKeyword(ctx context.Context, keywordID int64) (bool, error)
}

// NotificationGateway accepts a channel id and a payload; delivery is
// fire-and-forget from the core's point of view.
type NotificationGateway interface {
	SendToChannel(ctx context.Context, channelID string, payload domain.PushPayload) error
}

// Scheduler controls when sweeps execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
