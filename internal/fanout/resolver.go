package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/keyword"
	"NoticeHub/internal/ports"
)

// Resolver computes which subscribers must hear about a saved notice and
// hands deliveries to the gateway. Delivery failures are logged and
// never retried or propagated; a gateway hiccup must not poison the
// remaining targets.
type Resolver struct {
	prefs   ports.PreferenceRepository
	links   ports.KeywordLinkRepository
	gateway ports.NotificationGateway
	logger  *slog.Logger
}

func NewResolver(prefs ports.PreferenceRepository, links ports.KeywordLinkRepository,
	gateway ports.NotificationGateway, logger *slog.Logger) *Resolver {
	return &Resolver{prefs: prefs, links: links, gateway: gateway, logger: logger}
}

// Notify fans one newly stored or changed notice out to its targets.
// taggedIDs is the notice's freshly recomputed GLOBAL keyword set.
//
// ALL-mode subscribers share one broadcast on the per-type channel;
// KEYWORD-mode subscribers are matched by OR-ing their linked keywords
// and each receive one per-user delivery. A user's mode is single-valued
// per (user, sourceType), so nobody is reached through both paths.
func (r *Resolver) Notify(ctx context.Context, n *domain.Notice, taggedIDs []int64) error {
	payload := domain.NewPushPayload(n.SourceType, n.Title, n.Link)

	allUsers, err := r.prefs.UserIDsByTypeAndMode(ctx, n.SourceType, domain.ModeAll)
	if err != nil {
		return fmt.Errorf("lookup ALL subscribers: %w", err)
	}
	if len(allUsers) > 0 {
		r.send(ctx, ChannelForType(n.SourceType), payload)
	}

	kwUsers, err := r.prefs.UserIDsByTypeAndMode(ctx, n.SourceType, domain.ModeKeyword)
	if err != nil {
		return fmt.Errorf("lookup KEYWORD subscribers: %w", err)
	}
	if len(kwUsers) == 0 {
		return nil
	}

	globalMatched := map[int64]bool{}
	if len(taggedIDs) > 0 {
		ids, err := r.links.UserIDsByTypeAndKeywordIDs(ctx, n.SourceType, taggedIDs)
		if err != nil {
			return fmt.Errorf("lookup keyword links: %w", err)
		}
		for _, id := range ids {
			globalMatched[id] = true
		}
	}

	title := keyword.Normalize(n.Title)
	for _, uid := range kwUsers {
		matched := globalMatched[uid]
		if !matched {
			var perr error
			matched, perr = r.personalMatch(ctx, uid, n.SourceType, title)
			if perr != nil {
				r.logger.Warn("personal keyword match failed", "user", uid, "error", perr)
				continue
			}
		}
		if matched {
			r.send(ctx, ChannelForUser(uid), payload)
		}
	}

	return nil
}

// personalMatch reports whether any of the user's linked PERSONAL
// phrases is contained in the normalized title.
func (r *Resolver) personalMatch(ctx context.Context, userID int64, sourceType, normTitle string) (bool, error) {
	linked, err := r.links.LinkedKeywords(ctx, userID, sourceType)
	if err != nil {
		return false, err
	}
	for _, k := range linked {
		if k.Scope != domain.ScopePersonal || k.OwnerID != userID {
			continue
		}
		if phrase := keyword.Normalize(k.Phrase); phrase != "" && strings.Contains(normTitle, phrase) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) send(ctx context.Context, channelID string, payload domain.PushPayload) {
	if err := r.gateway.SendToChannel(ctx, channelID, payload); err != nil {
		r.logger.Error("push delivery failed", "channel", channelID, "error", err)
	}
}
