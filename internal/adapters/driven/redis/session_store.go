package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arclight-labs/session-core/internal/core/domain"
	"github.com/arclight-labs/session-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

// Key prefixes for the four per-user slots. These patterns are shared
// with older deployments and must not change.
const (
	recordPrefix    = "session:"
	reversePrefix   = "sessionId:"
	userIndexPrefix = "user_sessions:"
	activePrefix    = "active_session:"
)

// SessionStore implements driven.SessionStore over the clustered store.
// Multi-slot mutations go through a transactional pipeline so they land
// as one unit wherever the store can guarantee it.
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStore creates a Redis-backed SessionStore. All four slots
// are written and refreshed with the given TTL.
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = domain.DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Save unconditionally installs the record as the user's active session.
// Any reverse index left by a previous session is removed in the same
// pipeline that writes the four new slots.
func (s *SessionStore) Save(ctx context.Context, record *domain.SessionRecord) error {
	conn, err := s.client.Handle(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	oldID, err := s.ActiveID(ctx, record.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	_, err = conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if oldID != "" && oldID != record.SessionID {
			pipe.Del(ctx, reversePrefix+oldID)
		}
		pipe.Set(ctx, recordPrefix+record.UserID, payload, s.ttl)
		pipe.Set(ctx, activePrefix+record.UserID, record.SessionID, s.ttl)
		pipe.Set(ctx, userIndexPrefix+record.UserID, record.SessionID, s.ttl)
		pipe.Set(ctx, reversePrefix+record.SessionID, record.UserID, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save session: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ActiveID returns the session id the active pointer names for the user.
func (s *SessionStore) ActiveID(ctx context.Context, userID string) (string, error) {
	value, found, err := s.client.Get(ctx, activePrefix+userID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", domain.ErrNotFound
	}
	return value.Raw, nil
}

// Get returns the session record for the user.
func (s *SessionStore) Get(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	value, found, err := s.client.Get(ctx, recordPrefix+userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	if value.Kind != domain.ValueStructured {
		return nil, domain.ErrCorruptRecord
	}
	return value.Record, nil
}

// Refresh re-persists the record and reapplies the full TTL to all four
// slots so they expire together again.
func (s *SessionStore) Refresh(ctx context.Context, record *domain.SessionRecord) error {
	conn, err := s.client.Handle(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	_, err = conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordPrefix+record.UserID, payload, s.ttl)
		pipe.Expire(ctx, activePrefix+record.UserID, s.ttl)
		pipe.Expire(ctx, userIndexPrefix+record.UserID, s.ttl)
		pipe.Expire(ctx, reversePrefix+record.SessionID, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: refresh session: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Delete purges every slot belonging to the user. The reverse index key
// is derived from the current pointer; if no pointer exists the
// remaining deletes are still issued, keeping the operation idempotent.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	conn, err := s.client.Handle(ctx)
	if err != nil {
		return err
	}

	sessionID, err := s.ActiveID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	_, err = conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordPrefix+userID)
		pipe.Del(ctx, activePrefix+userID)
		pipe.Del(ctx, userIndexPrefix+userID)
		if sessionID != "" {
			pipe.Del(ctx, reversePrefix+sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteIfCurrent purges the user's slots only when the active pointer
// still names sessionID, so a stale caller cannot delete a session that
// a newer login installed.
func (s *SessionStore) DeleteIfCurrent(ctx context.Context, userID, sessionID string) (bool, error) {
	current, err := s.ActiveID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current != sessionID {
		return false, nil
	}
	if err := s.Delete(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// UserBySessionID resolves a session id to its owner via the reverse index.
func (s *SessionStore) UserBySessionID(ctx context.Context, sessionID string) (string, error) {
	value, found, err := s.client.Get(ctx, reversePrefix+sessionID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", domain.ErrNotFound
	}
	return value.Raw, nil
}

// Ping checks if the store backend is healthy.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
