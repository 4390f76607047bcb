package driving

import (
	"context"

	"github.com/arclight-labs/session-core/internal/core/domain"
)

// SessionAuthority enforces that a user has at most one valid session at
// any time. Logging in elsewhere silently invalidates any prior session.
type SessionAuthority interface {
	// CreateSession purges any existing session for the user, then writes
	// fresh session state and returns the new identifier, the TTL in
	// seconds, and the full record. Called on successful credential
	// verification.
	CreateSession(ctx context.Context, userID string, meta domain.Metadata) (*domain.CreateResult, error)

	// ValidateSession checks that sessionID is the user's active session
	// and that it has not gone stale, refreshing activity and TTLs on
	// success. It never returns a Go error; every failure path resolves
	// to a structured verdict. Called on every authenticated request.
	ValidateSession(ctx context.Context, userID, sessionID string) domain.Validation

	// RemoveSession purges the user's session state. When sessionID is
	// non-empty the purge only happens if that session is still the
	// active one, so a stale logout cannot delete a newer login's
	// session. Removing a non-existent session is a no-op.
	RemoveSession(ctx context.Context, userID, sessionID string) error

	// RemoveAllUserSessions unconditionally purges every slot for the
	// user. Idempotent; reports whether the purge completed without
	// error and never returns one.
	RemoveAllUserSessions(ctx context.Context, userID string) bool

	// UpdateLastActivity bumps the active session's activity timestamp
	// and refreshes dependent TTLs. Returns false when the user has no
	// session.
	UpdateLastActivity(ctx context.Context, userID string) bool

	// GetActiveSession returns the user's current record, or nil when
	// none exists. A dangling active pointer without a record is
	// self-healed by deleting the pointer.
	GetActiveSession(ctx context.Context, userID string) (*domain.SessionRecord, error)

	// LookupSession resolves a session id to its record via the reverse
	// index. Returns domain.ErrNotFound when the index or the record is
	// absent.
	LookupSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error)
}
