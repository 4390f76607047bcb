package mocks

import (
	"context"
	"sync"
	"time"
)

// MockDistributedLock is a mock implementation of DistributedLock for
// testing. It tracks locks in memory and supports custom behavior injection.
type MockDistributedLock struct {
	mu    sync.Mutex
	locks map[string]time.Time // name -> expiry

	// Custom behavior hooks (optional)
	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
	PingFn    func() error
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{
		locks: make(map[string]time.Time),
	}
}

// Acquire attempts to acquire a named lock. If AcquireFn is set, it
// delegates to that function; otherwise in-memory state tracks the lock.
func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[name]; exists && time.Now().Before(expiry) {
		return false, nil
	}
	m.locks[name] = time.Now().Add(ttl)
	return true, nil
}

// Release releases a named lock. If ReleaseFn is set, it delegates.
func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, name)
	return nil
}

// Ping checks backend health. If PingFn is set, it delegates.
func (m *MockDistributedLock) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Held reports whether the named lock is currently held.
func (m *MockDistributedLock) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.locks[name]
	return ok && time.Now().Before(expiry)
}
