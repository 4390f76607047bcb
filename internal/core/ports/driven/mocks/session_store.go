package mocks

import (
	"context"
	"sync"

	"github.com/arclight-labs/session-core/internal/core/domain"
)

// MockSessionStore is an in-memory implementation of SessionStore for
// testing. It keeps the four per-user slots coherent the way the Redis
// adapter does and supports failure injection per operation.
type MockSessionStore struct {
	mu       sync.RWMutex
	records  map[string]*domain.SessionRecord // by user id
	active   map[string]string                // user id -> session id
	userIdx  map[string]string                // user id -> session id (legacy index)
	byOwner  map[string]string                // session id -> user id
	corrupt  map[string]bool                  // user ids whose record reads as corrupt

	// Failure injection hooks (optional)
	SaveErr    error
	GetErr     error
	RefreshErr error
	DeleteErr  error
	PingErr    error
}

// NewMockSessionStore creates a new MockSessionStore.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		records: make(map[string]*domain.SessionRecord),
		active:  make(map[string]string),
		userIdx: make(map[string]string),
		byOwner: make(map[string]string),
		corrupt: make(map[string]bool),
	}
}

func (m *MockSessionStore) Save(ctx context.Context, record *domain.SessionRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.active[record.UserID]; ok {
		delete(m.byOwner, old)
	}
	m.records[record.UserID] = record
	m.active[record.UserID] = record.SessionID
	m.userIdx[record.UserID] = record.SessionID
	m.byOwner[record.SessionID] = record.UserID
	delete(m.corrupt, record.UserID)
	return nil
}

func (m *MockSessionStore) ActiveID(ctx context.Context, userID string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.active[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (m *MockSessionStore) Get(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.corrupt[userID] {
		return nil, domain.ErrCorruptRecord
	}
	rec, ok := m.records[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockSessionStore) Refresh(ctx context.Context, record *domain.SessionRecord) error {
	if m.RefreshErr != nil {
		return m.RefreshErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.UserID]; !ok {
		return domain.ErrNotFound
	}
	cp := *record
	m.records[record.UserID] = &cp
	return nil
}

func (m *MockSessionStore) Delete(ctx context.Context, userID string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(userID)
	return nil
}

func (m *MockSessionStore) DeleteIfCurrent(ctx context.Context, userID, sessionID string) (bool, error) {
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[userID] != sessionID {
		return false, nil
	}
	m.purgeLocked(userID)
	return true, nil
}

func (m *MockSessionStore) UserBySessionID(ctx context.Context, sessionID string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.byOwner[sessionID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return userID, nil
}

func (m *MockSessionStore) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockSessionStore) purgeLocked(userID string) {
	if sid, ok := m.active[userID]; ok {
		delete(m.byOwner, sid)
	}
	delete(m.records, userID)
	delete(m.active, userID)
	delete(m.userIdx, userID)
	delete(m.corrupt, userID)
}

// Test helpers below mutate slots out-of-band to simulate split-brain and
// legacy states.

// DropRecord deletes only the record slot, leaving the pointer dangling.
func (m *MockSessionStore) DropRecord(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
}

// DropPointer deletes only the active pointer slot.
func (m *MockSessionStore) DropPointer(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, userID)
}

// CorruptRecord makes subsequent Get calls for the user report corruption.
func (m *MockSessionStore) CorruptRecord(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrupt[userID] = true
}

// HasPointer reports whether the active pointer slot still exists.
func (m *MockSessionStore) HasPointer(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[userID]
	return ok
}

// HasRecord reports whether the record slot still exists.
func (m *MockSessionStore) HasRecord(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[userID]
	return ok
}
