package postgres

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"
	"time"

	"github.com/arclight-labs/session-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL advisory
// locks, used when sessions are stored in PostgreSQL and no Redis is
// configured. Advisory locks are session-scoped, so each held lock pins
// a dedicated connection out of the pool; releasing through a different
// pooled connection would silently not unlock. The TTL argument is
// ignored: a lost connection releases the lock on its own.
type AdvisoryLock struct {
	db *DB

	mu   sync.Mutex
	held map[int64]*sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{
		db:   db,
		held: make(map[int64]*sql.Conn),
	}
}

// hashLockName converts a lock name to the 64-bit integer PostgreSQL
// advisory locks key on. FNV-1a for consistent, well-distributed values.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("session:lock:" + name))
	return int64(h.Sum64())
}

// Acquire attempts to take a named advisory lock without blocking. The
// connection that acquired it stays pinned until Release.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	lockID := hashLockName(name)

	l.mu.Lock()
	if _, exists := l.held[lockID]; exists {
		l.mu.Unlock()
		return false, nil
	}
	l.mu.Unlock()

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.mu.Lock()
	l.held[lockID] = conn
	l.mu.Unlock()
	return true, nil
}

// Release releases a named advisory lock on the connection that holds it
// and returns that connection to the pool. Safe to call when the lock is
// not held.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	lockID := hashLockName(name)

	l.mu.Lock()
	conn, exists := l.held[lockID]
	delete(l.held, lockID)
	l.mu.Unlock()

	if !exists {
		return nil
	}

	var released bool
	err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", lockID).Scan(&released)
	conn.Close()
	return err
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
