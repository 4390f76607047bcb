package driven

import (
	"context"

	"github.com/arclight-labs/session-core/internal/core/domain"
)

// SessionStore persists the four denormalized key slots that describe a
// user's single active session: the record, the active pointer, the
// user-session index, and the session-id reverse index. Implementations
// keep the slots expiring together under one TTL and make multi-slot
// mutations as atomic as the backing store allows.
type SessionStore interface {
	// Save unconditionally installs the record as the user's active
	// session: any previous slots (including a stale reverse index) are
	// removed and all four slots are written with a fresh TTL.
	Save(ctx context.Context, record *domain.SessionRecord) error

	// ActiveID returns the session id the active pointer currently names
	// for the user. Returns domain.ErrNotFound when no pointer exists.
	ActiveID(ctx context.Context, userID string) (string, error)

	// Get returns the session record for the user. Returns
	// domain.ErrNotFound when absent and domain.ErrCorruptRecord when the
	// stored payload cannot be decoded into a record.
	Get(ctx context.Context, userID string) (*domain.SessionRecord, error)

	// Refresh re-persists the record (with its updated LastActivity) and
	// reapplies the full TTL to all four slots so they expire together.
	Refresh(ctx context.Context, record *domain.SessionRecord) error

	// Delete purges every slot belonging to the user. Deleting a user
	// with no session is a no-op.
	Delete(ctx context.Context, userID string) error

	// DeleteIfCurrent purges the user's slots only when the active
	// pointer still names sessionID. Returns whether a purge happened.
	DeleteIfCurrent(ctx context.Context, userID, sessionID string) (bool, error)

	// UserBySessionID resolves a session id back to its owning user via
	// the reverse index. Returns domain.ErrNotFound when unknown.
	UserBySessionID(ctx context.Context, sessionID string) (string, error)

	// Ping checks if the store backend is healthy.
	Ping(ctx context.Context) error
}
