package redis

import (
	"context"
	"testing"
	"time"
)

func TestLock_AcquireRelease(t *testing.T) {
	client, _, cleanup := setupTestClient(t)
	defer cleanup()
	ctx := context.Background()

	lock := NewLock(client)

	acquired, err := lock.Acquire(ctx, "user:user-1", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("expected to acquire lock")
	}

	// Second acquisition by the same name fails while held.
	acquired, err = lock.Acquire(ctx, "user:user-1", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected lock to be contended")
	}

	if err := lock.Release(ctx, "user:user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired, err = lock.Acquire(ctx, "user:user-1", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to reacquire after release")
	}
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	client, mr, cleanup := setupTestClient(t)
	defer cleanup()
	ctx := context.Background()

	lock := NewLock(client)

	acquired, err := lock.Acquire(ctx, "user:user-1", time.Second)
	if err != nil || !acquired {
		t.Fatalf("acquire failed: acquired=%v err=%v", acquired, err)
	}

	mr.FastForward(2 * time.Second)

	acquired, err = lock.Acquire(ctx, "user:user-1", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected lock to be acquirable after TTL expiry")
	}
}

func TestLock_ReleaseOnlyByOwner(t *testing.T) {
	client, mr, cleanup := setupTestClient(t)
	defer cleanup()
	ctx := context.Background()

	holder := NewLock(client)
	other := NewLock(client)

	acquired, err := holder.Acquire(ctx, "user:user-1", 5*time.Second)
	if err != nil || !acquired {
		t.Fatalf("acquire failed: acquired=%v err=%v", acquired, err)
	}

	// A different instance releasing the same name is a no-op.
	if err := other.Release(ctx, "user:user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists(lockPrefix + "user:user-1") {
		t.Error("expected lock to survive release by non-owner")
	}

	if err := holder.Release(ctx, "user:user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(lockPrefix + "user:user-1") {
		t.Error("expected lock to be released by owner")
	}
}

func TestLock_ReleaseWithoutHolding(t *testing.T) {
	client, _, cleanup := setupTestClient(t)
	defer cleanup()

	lock := NewLock(client)
	if err := lock.Release(context.Background(), "never-held"); err != nil {
		t.Errorf("expected release of absent lock to be a no-op, got %v", err)
	}
}

func TestLock_DistinctOwnerIDs(t *testing.T) {
	client, _, cleanup := setupTestClient(t)
	defer cleanup()

	a := NewLock(client)
	b := NewLock(client)
	if a.OwnerID() == b.OwnerID() {
		t.Error("expected distinct owner ids per instance")
	}
}
