package keyword

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memKeywordRepo struct {
	nextID   int64
	keywords map[int64]domain.Keyword
	// loads counts FindByScope calls so cache tests can observe reloads
	loads int
}

func newMemKeywordRepo() *memKeywordRepo {
	return &memKeywordRepo{nextID: 1, keywords: map[int64]domain.Keyword{}}
}

func (r *memKeywordRepo) FindByID(_ context.Context, id int64) (*domain.Keyword, error) {
	if k, ok := r.keywords[id]; ok {
		return &k, nil
	}
	return nil, nil
}

func (r *memKeywordRepo) FindByScope(_ context.Context, scope domain.Scope) ([]domain.Keyword, error) {
	r.loads++
	var out []domain.Keyword
	for _, k := range r.keywords {
		if k.Scope == scope {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *memKeywordRepo) FindByOwner(_ context.Context, ownerID int64) ([]domain.Keyword, error) {
	var out []domain.Keyword
	for _, k := range r.keywords {
		if k.Scope == domain.ScopePersonal && k.OwnerID == ownerID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *memKeywordRepo) ExistsByScopeAndPhrase(_ context.Context, scope domain.Scope, phrase string) (bool, error) {
	for _, k := range r.keywords {
		if k.Scope == scope && Normalize(k.Phrase) == Normalize(phrase) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memKeywordRepo) Insert(_ context.Context, k *domain.Keyword) error {
	k.ID = r.nextID
	r.nextID++
	k.CreatedAt = time.Now()
	r.keywords[k.ID] = *k
	return nil
}

func (r *memKeywordRepo) Delete(_ context.Context, id int64) error {
	delete(r.keywords, id)
	return nil
}

var _ ports.KeywordRepository = (*memKeywordRepo)(nil)

type memLinkRepo struct {
	nextID   int64
	links    []domain.SubscriptionKeywordLink
	keywords *memKeywordRepo
}

func newMemLinkRepo(keywords *memKeywordRepo) *memLinkRepo {
	return &memLinkRepo{nextID: 1, keywords: keywords}
}

func (r *memLinkRepo) Add(_ context.Context, link *domain.SubscriptionKeywordLink) error {
	for _, l := range r.links {
		if l.UserID == link.UserID && l.SourceType == link.SourceType && l.KeywordID == link.KeywordID {
			return nil
		}
	}
	link.ID = r.nextID
	r.nextID++
	r.links = append(r.links, *link)
	return nil
}

func (r *memLinkRepo) Remove(_ context.Context, userID int64, sourceType string, keywordID int64) error {
	kept := r.links[:0]
	for _, l := range r.links {
		if l.UserID == userID && l.SourceType == sourceType && l.KeywordID == keywordID {
			continue
		}
		kept = append(kept, l)
	}
	r.links = kept
	return nil
}

func (r *memLinkRepo) FindByUserAndType(_ context.Context, userID int64, sourceType string) ([]domain.SubscriptionKeywordLink, error) {
	var out []domain.SubscriptionKeywordLink
	for _, l := range r.links {
		if l.UserID == userID && l.SourceType == sourceType {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLinkRepo) LinkedKeywords(ctx context.Context, userID int64, sourceType string) ([]domain.Keyword, error) {
	var out []domain.Keyword
	for _, l := range r.links {
		if l.UserID != userID || l.SourceType != sourceType {
			continue
		}
		k, err := r.keywords.FindByID(ctx, l.KeywordID)
		if err != nil || k == nil {
			continue
		}
		out = append(out, *k)
	}
	return out, nil
}

func (r *memLinkRepo) UserIDsByTypeAndKeywordIDs(_ context.Context, sourceType string, keywordIDs []int64) ([]int64, error) {
	wanted := map[int64]bool{}
	for _, id := range keywordIDs {
		wanted[id] = true
	}
	seen := map[int64]bool{}
	var out []int64
	for _, l := range r.links {
		if l.SourceType == sourceType && wanted[l.KeywordID] && !seen[l.UserID] {
			seen[l.UserID] = true
			out = append(out, l.UserID)
		}
	}
	return out, nil
}

func (r *memLinkRepo) ExistsByKeyword(_ context.Context, keywordID int64) (bool, error) {
	for _, l := range r.links {
		if l.KeywordID == keywordID {
			return true, nil
		}
	}
	return false, nil
}

var _ ports.KeywordLinkRepository = (*memLinkRepo)(nil)

type memPrefRepo struct {
	modes map[[2]string]domain.Mode
}

func newMemPrefRepo() *memPrefRepo {
	return &memPrefRepo{modes: map[[2]string]domain.Mode{}}
}

func prefKey(userID int64, sourceType string) [2]string {
	return [2]string{strconv.FormatInt(userID, 10), sourceType}
}

func (r *memPrefRepo) Mode(_ context.Context, userID int64, sourceType string) (domain.Mode, error) {
	if m, ok := r.modes[prefKey(userID, sourceType)]; ok {
		return m, nil
	}
	return domain.ModeNone, nil
}

func (r *memPrefRepo) SetMode(_ context.Context, userID int64, sourceType string, mode domain.Mode) error {
	r.modes[prefKey(userID, sourceType)] = mode
	return nil
}

func (r *memPrefRepo) UserIDsByTypeAndMode(_ context.Context, sourceType string, mode domain.Mode) ([]int64, error) {
	return nil, nil
}

var _ ports.PreferenceRepository = (*memPrefRepo)(nil)

type memNoticeRepo struct {
	byLink map[string]domain.Notice
	tags   map[uuid.UUID][]int64
}

func newMemNoticeRepo() *memNoticeRepo {
	return &memNoticeRepo{byLink: map[string]domain.Notice{}, tags: map[uuid.UUID][]int64{}}
}

func (r *memNoticeRepo) put(n domain.Notice) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.byLink[n.Link] = n
}

func (r *memNoticeRepo) FindByLink(_ context.Context, link string) (*domain.Notice, error) {
	if n, ok := r.byLink[link]; ok {
		return &n, nil
	}
	return nil, nil
}

func (r *memNoticeRepo) Insert(_ context.Context, n *domain.Notice) error {
	if _, ok := r.byLink[n.Link]; ok {
		return ports.ErrDuplicateLink
	}
	r.byLink[n.Link] = *n
	return nil
}

func (r *memNoticeRepo) Update(_ context.Context, n *domain.Notice) error {
	r.byLink[n.Link] = *n
	return nil
}

func (r *memNoticeRepo) ExistsByLink(_ context.Context, link string) (bool, error) {
	_, ok := r.byLink[link]
	return ok, nil
}

func (r *memNoticeRepo) ExistsBySourceType(_ context.Context, sourceType string) (bool, error) {
	for _, n := range r.byLink {
		if n.SourceType == sourceType {
			return true, nil
		}
	}
	return false, nil
}

func (r *memNoticeRepo) CountBySourceTypeCreatedAfter(_ context.Context, sourceType string, after time.Time) (int, error) {
	count := 0
	for _, n := range r.byLink {
		if n.SourceType == sourceType && n.CreatedAt.After(after) {
			count++
		}
	}
	return count, nil
}

func (r *memNoticeRepo) ReplaceKeywords(_ context.Context, noticeID uuid.UUID, keywordIDs []int64) error {
	r.tags[noticeID] = append([]int64(nil), keywordIDs...)
	return nil
}

func (r *memNoticeRepo) All(_ context.Context) ([]domain.Notice, error) {
	var out []domain.Notice
	for _, n := range r.byLink {
		out = append(out, n)
	}
	return out, nil
}

var _ ports.NoticeRepository = (*memNoticeRepo)(nil)
