package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arclight-labs/session-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "session:lock:"

// Lock implements DistributedLock using Redis SETNX with TTL. It carries
// a unique owner ID so one instance cannot release a lock held by another.
type Lock struct {
	client  *Client
	ownerID string
}

// NewLock creates a Redis-backed distributed lock sharing the store
// client's connection.
func NewLock(client *Client) *Lock {
	return &Lock{
		client:  client,
		ownerID: generateOwnerID(),
	}
}

// generateOwnerID creates a unique identifier for this lock holder.
// Format: hostname:pid:random
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

// Acquire attempts to take a named lock with the given TTL. Returns true
// if acquired, false if another instance holds it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	conn, err := l.client.Handle(ctx)
	if err != nil {
		return false, err
	}
	acquired, err := conn.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return acquired, nil
}

// releaseScript deletes the lock only when the current owner matches,
// so an expired-and-reacquired lock is never released by its old holder.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release releases a named lock if held by this instance. Safe to call
// even if the lock is not held or has expired.
func (l *Lock) Release(ctx context.Context, name string) error {
	conn, err := l.client.Handle(ctx)
	if err != nil {
		return err
	}
	_, err = releaseScript.Run(ctx, conn, []string{lockPrefix + name}, l.ownerID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Ping checks if the lock backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx)
}

// OwnerID returns the unique identifier for this lock instance.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
