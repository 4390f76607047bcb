package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arclight-labs/session-core/internal/core/ports/driven/mocks"
)

// mockPurger counts purge calls and returns a configurable result.
type mockPurger struct {
	calls  atomic.Int64
	purged int64
	err    error
}

func (m *mockPurger) PurgeExpired(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	if m.err != nil {
		return 0, m.err
	}
	return m.purged, nil
}

func TestReaper_SweepsOnInterval(t *testing.T) {
	purger := &mockPurger{purged: 3}
	reaper := NewReaper(ReaperConfig{
		Purger:   purger,
		Interval: 10 * time.Millisecond,
	})

	ctx := context.Background()
	if err := reaper.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reaper.Running() {
		t.Error("expected reaper to be running")
	}

	deadline := time.After(time.Second)
	for purger.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("expected at least two sweeps within a second")
		case <-time.After(5 * time.Millisecond):
		}
	}

	reaper.Stop()
	if reaper.Running() {
		t.Error("expected reaper to be stopped")
	}
}

func TestReaper_StopIsIdempotent(t *testing.T) {
	reaper := NewReaper(ReaperConfig{
		Purger:   &mockPurger{},
		Interval: time.Hour,
	})

	if err := reaper.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reaper.Stop()
	reaper.Stop()

	// Restarting after a stop works.
	if err := reaper.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reaper.Stop()
}

func TestReaper_StartTwice(t *testing.T) {
	reaper := NewReaper(ReaperConfig{
		Purger:   &mockPurger{},
		Interval: time.Hour,
	})

	ctx := context.Background()
	if err := reaper.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reaper.Start(ctx); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}
	reaper.Stop()
}

func TestReaper_SkipsWhenLockContended(t *testing.T) {
	purger := &mockPurger{}
	lock := mocks.NewMockDistributedLock()
	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, nil
	}

	reaper := NewReaper(ReaperConfig{
		Purger:   purger,
		Lock:     lock,
		Interval: 10 * time.Millisecond,
	})

	if err := reaper.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	reaper.Stop()

	if purger.calls.Load() != 0 {
		t.Error("expected no sweeps while another instance holds the lock")
	}
}

func TestReaper_ReleasesLockAfterSweep(t *testing.T) {
	purger := &mockPurger{purged: 1}
	lock := mocks.NewMockDistributedLock()

	reaper := NewReaper(ReaperConfig{
		Purger:   purger,
		Lock:     lock,
		Interval: 10 * time.Millisecond,
	})

	if err := reaper.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.After(time.Second)
	for purger.calls.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("expected a sweep within a second")
		case <-time.After(5 * time.Millisecond):
		}
	}
	reaper.Stop()

	if lock.Held(reaperLockName) {
		t.Error("expected reaper lock to be released after the sweep")
	}
}

func TestReaper_SurvivesPurgeFailure(t *testing.T) {
	purger := &mockPurger{err: errors.New("connection reset")}
	reaper := NewReaper(ReaperConfig{
		Purger:   purger,
		Interval: 10 * time.Millisecond,
	})

	if err := reaper.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.After(time.Second)
	for purger.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("expected the loop to keep sweeping after failures")
		case <-time.After(5 * time.Millisecond):
		}
	}
	reaper.Stop()
}
