package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalSchedulerRunsJob(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewIntervalScheduler(time.Millisecond, 10*time.Millisecond)

	ctx := context.Background()
	if err := s.Start(ctx, func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 runs, got %d", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	stopped := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if runs.Load() > stopped+1 {
		t.Fatalf("job kept running after Stop: %d -> %d", stopped, runs.Load())
	}
}

func TestIntervalSchedulerStopBeforeFirstRun(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewIntervalScheduler(time.Hour, time.Hour)

	ctx := context.Background()
	if err := s.Start(ctx, func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatalf("job ran despite Stop before the initial delay")
	}
}

func TestIntervalSchedulerContextCancelStopsJob(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewIntervalScheduler(0, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for runs.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("job never ran")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() > after {
		t.Fatalf("job kept running after context cancel")
	}
}

func TestIntervalSchedulerNilJob(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Millisecond, time.Millisecond)
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start with nil job: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}
