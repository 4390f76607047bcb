package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arclight-labs/session-core/internal/core/domain"
	"github.com/arclight-labs/session-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore implements driven.SessionStore on PostgreSQL for
// single-node deployments without Redis. The four slots of the Redis
// layout collapse into one row per user, so replacement is a single
// upsert and the invariant holds by construction. Expiry is enforced
// with an expires_at predicate on every read; PurgeExpired reclaims the
// dead rows from a background sweep.
type SessionStore struct {
	db  *DB
	ttl time.Duration
}

// NewSessionStore creates a PostgreSQL-backed SessionStore.
func NewSessionStore(db *DB, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = domain.DefaultSessionTTL
	}
	return &SessionStore{db: db, ttl: ttl}
}

// Save installs the record as the user's active session, replacing any
// previous row.
func (s *SessionStore) Save(ctx context.Context, record *domain.SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	query := `
		INSERT INTO user_sessions (user_id, session_id, record, last_activity, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			record = EXCLUDED.record,
			last_activity = EXCLUDED.last_activity,
			expires_at = EXCLUDED.expires_at
	`

	_, err = s.db.ExecContext(ctx, query,
		record.UserID,
		record.SessionID,
		payload,
		record.LastActivity,
		time.Now().UTC().Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("%w: save session: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ActiveID returns the session id currently installed for the user.
func (s *SessionStore) ActiveID(ctx context.Context, userID string) (string, error) {
	query := `SELECT session_id FROM user_sessions WHERE user_id = $1 AND expires_at > NOW()`

	var sessionID string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get active id: %v", domain.ErrStoreUnavailable, err)
	}
	return sessionID, nil
}

// Get returns the session record for the user.
func (s *SessionStore) Get(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	query := `SELECT record FROM user_sessions WHERE user_id = $1 AND expires_at > NOW()`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", domain.ErrStoreUnavailable, err)
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, domain.ErrCorruptRecord
	}
	return &record, nil
}

// Refresh re-persists the record and pushes the expiry window out again.
func (s *SessionStore) Refresh(ctx context.Context, record *domain.SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	query := `
		UPDATE user_sessions
		SET record = $2, last_activity = $3, expires_at = $4
		WHERE user_id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		record.UserID,
		payload,
		record.LastActivity,
		time.Now().UTC().Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("%w: refresh session: %v", domain.ErrStoreUnavailable, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: refresh session: %v", domain.ErrStoreUnavailable, err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete purges the user's session row. No-op when absent.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteIfCurrent purges the row only when it still carries sessionID.
func (s *SessionStore) DeleteIfCurrent(ctx context.Context, userID, sessionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE user_id = $1 AND session_id = $2`,
		userID, sessionID,
	)
	if err != nil {
		return false, fmt.Errorf("%w: delete session: %v", domain.ErrStoreUnavailable, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete session: %v", domain.ErrStoreUnavailable, err)
	}
	return rows > 0, nil
}

// UserBySessionID resolves a session id to its owning user.
func (s *SessionStore) UserBySessionID(ctx context.Context, sessionID string) (string, error) {
	query := `SELECT user_id FROM user_sessions WHERE session_id = $1 AND expires_at > NOW()`

	var userID string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: lookup session owner: %v", domain.ErrStoreUnavailable, err)
	}
	return userID, nil
}

// PurgeExpired deletes rows whose hard expiry has passed. Reads already
// exclude them; this only reclaims storage.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("%w: purge expired sessions: %v", domain.ErrStoreUnavailable, err)
	}
	return result.RowsAffected()
}

// Ping checks if the database is healthy.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
