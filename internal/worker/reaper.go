package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arclight-labs/session-core/internal/core/ports/driven"
	"github.com/arclight-labs/session-core/internal/metrics"
)

// ExpiredPurger deletes session rows whose hard expiry has passed.
// Backends with native TTL support (Redis) don't need one.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

const reaperLockName = "reaper"

// Reaper periodically reclaims expired session rows. When a distributed
// lock is configured only one instance sweeps per interval; the others
// skip the round.
type Reaper struct {
	purger ExpiredPurger
	lock   driven.DistributedLock
	logger *slog.Logger

	interval time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// ReaperConfig holds configuration for the reaper.
type ReaperConfig struct {
	Purger   ExpiredPurger
	Lock     driven.DistributedLock // optional
	Logger   *slog.Logger
	Interval time.Duration
}

// NewReaper creates a new session reaper.
func NewReaper(cfg ReaperConfig) *Reaper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	return &Reaper{
		purger:   cfg.Purger,
		lock:     cfg.Lock,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the sweep loop. It runs until Stop is called or the
// context is cancelled.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info("session reaper starting", "interval", r.interval)

	go r.sweepLoop(ctx)
	return nil
}

// Stop gracefully stops the reaper and waits for the loop to exit.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.mu.Unlock()

	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.logger.Info("session reaper stopped")
}

func (r *Reaper) sweepLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep runs one purge round. The lock TTL spans the interval so a
// crashed holder never blocks sweeping for longer than one round.
func (r *Reaper) sweep(ctx context.Context) {
	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, reaperLockName, r.interval)
		if err != nil {
			r.logger.Error("reaper lock acquisition failed", "error", err)
			return
		}
		if !acquired {
			return
		}
		defer func() {
			if err := r.lock.Release(context.WithoutCancel(ctx), reaperLockName); err != nil {
				r.logger.Warn("reaper lock release failed", "error", err)
			}
		}()
	}

	start := time.Now()
	purged, err := r.purger.PurgeExpired(ctx)
	if err != nil {
		r.logger.Error("session sweep failed", "error", err)
		return
	}

	if purged > 0 {
		metrics.SessionsReaped.Add(float64(purged))
		r.logger.Info("session sweep completed",
			"purged", purged,
			"duration", time.Since(start),
		)
	}
}

// Running reports whether the sweep loop is active.
func (r *Reaper) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}
