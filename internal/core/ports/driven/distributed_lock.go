package driven

import (
	"context"
	"time"
)

// DistributedLock serializes work across instances. The authority takes a
// short per-user lock while replacing a session so two simultaneous logins
// for the same user cannot interleave their multi-slot writes.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held by another instance.
	// The lock auto-expires after TTL.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock if held by this instance.
	// Safe to call even if the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
