package keyword

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/ports"
)

// Tagger recomputes which GLOBAL keywords match a stored notice's title
// and replaces the notice's cached keyword set with the result.
type Tagger struct {
	notices ports.NoticeRepository
	cache   *GlobalCache
	logger  *slog.Logger
}

func NewTagger(notices ports.NoticeRepository, cache *GlobalCache, logger *slog.Logger) *Tagger {
	return &Tagger{notices: notices, cache: cache, logger: logger}
}

// Tag reloads the notice by its link, computes the matched GLOBAL set
// against the normalized title, and swaps the cached set clear-then-add.
// The reload keeps concurrent tag updates from being lost. Returns the
// matched keyword ids.
func (t *Tagger) Tag(ctx context.Context, n *domain.Notice) ([]int64, error) {
	fresh, err := t.notices.FindByLink(ctx, n.Link)
	if err != nil {
		return nil, fmt.Errorf("reload notice: %w", err)
	}
	if fresh == nil {
		return nil, fmt.Errorf("notice not stored: %s", n.Link)
	}

	phrases, err := t.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	title := Normalize(fresh.Title)
	matched := make([]int64, 0, len(phrases))
	for _, p := range phrases {
		if strings.Contains(title, p.Norm) {
			matched = append(matched, p.ID)
		}
	}

	if err := t.notices.ReplaceKeywords(ctx, fresh.ID, matched); err != nil {
		return nil, fmt.Errorf("replace keywords: %w", err)
	}

	return matched, nil
}

// RetagAll recomputes the cached set for every stored notice. Used by
// the retag-on-start switch after the GLOBAL list changes out of band.
func (t *Tagger) RetagAll(ctx context.Context) error {
	all, err := t.notices.All(ctx)
	if err != nil {
		return fmt.Errorf("list notices: %w", err)
	}
	for i := range all {
		if _, err := t.Tag(ctx, &all[i]); err != nil {
			t.logger.Warn("retag failed", "link", all[i].Link, "error", err)
		}
	}
	return nil
}
