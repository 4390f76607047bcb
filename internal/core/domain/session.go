package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DefaultSessionTTL is the nominal lifetime shared by every key slot
// belonging to a session. All slots are written and refreshed with this
// TTL so they expire together.
const DefaultSessionTTL = 24 * time.Hour

// DefaultSoftTimeout bounds how long a session may go without a
// successfully validated request before it is considered stale. It is
// enforced by the authority, independently of the store-level TTL.
const DefaultSoftTimeout = 24 * time.Hour

// SessionIDBytes is the entropy of a session identifier. Rendered as hex
// the identifier is twice this many characters long.
const SessionIDBytes = 32

// Metadata describes the client that opened a session. Extra carries
// caller-supplied fields that don't fit the fixed shape.
type Metadata struct {
	UserAgent  string            `json:"userAgent,omitempty"`
	IPAddress  string            `json:"ipAddress,omitempty"`
	DeviceInfo string            `json:"deviceInfo,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// SessionRecord is the authoritative payload describing a user's single
// active session. Field names follow the wire format already present in
// deployed stores, so they stay camelCase.
type SessionRecord struct {
	UserID       string    `json:"userId"`
	SessionID    string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Metadata     Metadata  `json:"metadata"`
}

// IsStale reports whether the session has gone unused longer than the
// given soft timeout, measured from LastActivity.
func (r *SessionRecord) IsStale(now time.Time, softTimeout time.Duration) bool {
	return now.Sub(r.LastActivity) > softTimeout
}

// CreateResult is returned by the authority after a successful login.
type CreateResult struct {
	SessionID string         `json:"sessionId"`
	ExpiresIn int64          `json:"expiresIn"` // seconds
	Record    *SessionRecord `json:"record"`
}

// NewSessionID generates a high-entropy session identifier: 32 random
// bytes rendered as a 64-character hex string.
func NewSessionID() string {
	b := make([]byte, SessionIDBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
