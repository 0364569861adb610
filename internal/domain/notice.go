package domain

import (
	"time"

	"github.com/google/uuid"
)

// PinnedLabel is the forced sequence label for fixed (always-shown) rows.
const PinnedLabel = "pinned"

// Notice is a core entity describing one announcement scraped from an
// institutional board. Link is the natural key; two rows with the same
// link are the same announcement.
type Notice struct {
	ID            uuid.UUID
	SourceType    string
	SequenceLabel string
	Category      string
	Title         string
	Department    string
	Date          string
	Link          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Scope separates admin-seeded shared keywords from user-owned ones.
type Scope string

const (
	ScopeGlobal   Scope = "GLOBAL"
	ScopePersonal Scope = "PERSONAL"
)

// Keyword is a phrase matched against notice titles. OwnerID is set only
// for PERSONAL scope.
type Keyword struct {
	ID        int64
	Phrase    string
	Scope     Scope
	OwnerID   int64
	CreatedAt time.Time
}

// Mode is a user's per-sourceType subscription mode.
type Mode string

const (
	ModeAll     Mode = "ALL"
	ModeKeyword Mode = "KEYWORD"
	ModeNone    Mode = "NONE"
)

// SubscriptionPreference holds one mode per (user, sourceType).
type SubscriptionPreference struct {
	ID         int64
	UserID     int64
	SourceType string
	Mode       Mode
}

// SubscriptionKeywordLink ties a user's interest in one keyword to one
// sourceType. GLOBAL keywords may be linked by any user, PERSONAL only
// by their owner.
type SubscriptionKeywordLink struct {
	ID         int64
	UserID     int64
	SourceType string
	KeywordID  int64
}

// PushPayload is the 4-field structure delivered through the gateway for
// both broadcast and per-user channels.
type PushPayload struct {
	SourceType string `json:"type"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Link       string `json:"link"`
}

// NewPushPayload applies the fixed payload rule: title is a per-type
// header, body is the notice title.
func NewPushPayload(sourceType, noticeTitle, link string) PushPayload {
	return PushPayload{
		SourceType: sourceType,
		Title:      "[" + sourceType + "] new announcement posted",
		Body:       noticeTitle,
		Link:       link,
	}
}
