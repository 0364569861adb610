package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/ports"
)

// Persister is the dedup/merge step: candidates are upserted against
// stored state keyed by link, one isolated unit of work per item so a
// bad row never discards the rest of the batch.
type Persister struct {
	notices ports.NoticeRepository
	logger  *slog.Logger
}

func NewPersister(notices ports.NoticeRepository, logger *slog.Logger) *Persister {
	return &Persister{notices: notices, logger: logger}
}

// Persist stores each candidate and returns only the notices that were
// newly created or changed. Unchanged candidates are no-ops and item
// failures are logged and skipped.
func (p *Persister) Persist(ctx context.Context, scraped []domain.Notice) []domain.Notice {
	var newOrUpdated []domain.Notice
	for i := range scraped {
		saved, err := p.saveOrUpdateOne(ctx, &scraped[i])
		if err != nil {
			p.logger.Warn("persist item failed", "link", scraped[i].Link, "error", err)
			continue
		}
		if saved != nil {
			newOrUpdated = append(newOrUpdated, *saved)
		}
	}
	return newOrUpdated
}

func (p *Persister) saveOrUpdateOne(ctx context.Context, n *domain.Notice) (*domain.Notice, error) {
	existing, err := p.notices.FindByLink(ctx, n.Link)
	if err != nil {
		return nil, fmt.Errorf("lookup by link: %w", err)
	}

	if existing == nil {
		n.ID = uuid.New()
		err := p.notices.Insert(ctx, n)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, ports.ErrDuplicateLink) {
			return nil, fmt.Errorf("insert: %w", err)
		}
		// lost the insert race; the unique constraint on link is the
		// final guard, so reload and fall through to the merge path
		existing, err = p.notices.FindByLink(ctx, n.Link)
		if err != nil {
			return nil, fmt.Errorf("reload after duplicate: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("link vanished after duplicate insert: %s", n.Link)
		}
	}

	if !isChanged(existing, n) {
		return nil, nil
	}

	merge(existing, n)
	if err := p.notices.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	return existing, nil
}

// isChanged compares the tracked fields that mark an announcement as
// edited upstream.
func isChanged(old, candidate *domain.Notice) bool {
	return old.SourceType != candidate.SourceType ||
		old.Title != candidate.Title ||
		old.Date != candidate.Date ||
		old.Department != candidate.Department ||
		old.Category != candidate.Category
}

// merge overwrites the stored record in place; identity is preserved.
func merge(target, src *domain.Notice) {
	target.SourceType = src.SourceType
	target.Title = src.Title
	target.Date = src.Date
	target.Department = src.Department
	target.Category = src.Category
	target.SequenceLabel = src.SequenceLabel
}
