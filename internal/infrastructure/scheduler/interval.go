package scheduler

import (
	"context"
	"time"

	"NoticeHub/internal/ports"
)

// IntervalScheduler triggers sweeps on a fixed interval after an
// initial delay. The core holds no scheduling state of its own; this
// driver is the only clock.
type IntervalScheduler struct {
	initialDelay time.Duration
	interval     time.Duration
	stop         chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

func NewIntervalScheduler(initialDelay, interval time.Duration) *IntervalScheduler {
	return &IntervalScheduler{initialDelay: initialDelay, interval: interval}
}

// Start launches the ticking goroutine. Calling Start twice is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go func() {
		select {
		case <-time.After(s.initialDelay):
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}

		job(time.Now())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
