package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Runner executes one sweep over all configured sources, sequentially.
// Sources whose tick aborted on a fetch error get exactly one immediate
// re-attempt after the sweep; no error kind aborts an unrelated source.
type Runner struct {
	orchestrator *Orchestrator
	sources      []Source
	logger       *slog.Logger
}

func NewRunner(orchestrator *Orchestrator, sources []Source, logger *slog.Logger) *Runner {
	return &Runner{orchestrator: orchestrator, sources: sources, logger: logger}
}

// Sweep runs every source once, then retries the fetch-failed ones.
func (r *Runner) Sweep(ctx context.Context) {
	var failed []Source
	for _, src := range r.sources {
		if err := r.orchestrator.RunOnce(ctx, src); err != nil {
			r.logger.Error("scrape failed", "type", src.Type, "error", err)
			var fe *FetchError
			if errors.As(err, &fe) {
				failed = append(failed, src)
			}
		}
	}

	for _, src := range failed {
		if err := r.orchestrator.RunOnce(ctx, src); err != nil {
			r.logger.Error("scrape retry failed", "type", src.Type, "error", err)
		}
	}
}

// RunOnce runs a single configured source by its type name.
func (r *Runner) RunOnce(ctx context.Context, sourceType string) error {
	for _, src := range r.sources {
		if src.Type == sourceType {
			return r.orchestrator.RunOnce(ctx, src)
		}
	}
	return fmt.Errorf("source type %q is not configured", sourceType)
}
