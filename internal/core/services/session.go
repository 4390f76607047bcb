package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/arclight-labs/session-core/internal/core/domain"
	"github.com/arclight-labs/session-core/internal/core/ports/driven"
	"github.com/arclight-labs/session-core/internal/core/ports/driving"
	"github.com/arclight-labs/session-core/internal/metrics"
)

// Ensure sessionService implements SessionAuthority
var _ driving.SessionAuthority = (*sessionService)(nil)

// Per-user create lock. Short TTL: it only needs to outlive one
// purge-and-replace round trip.
const (
	createLockTTL      = 5 * time.Second
	createLockAttempts = 3
	createLockBackoff  = 25 * time.Millisecond
)

// SessionAuthorityConfig configures the session authority.
type SessionAuthorityConfig struct {
	Store driven.SessionStore

	// Lock, when set, serializes concurrent CreateSession calls for the
	// same user across instances. Optional; creation proceeds without it.
	Lock driven.DistributedLock

	Logger *slog.Logger

	// TTL is the hard store-level lifetime applied to all four slots.
	TTL time.Duration

	// SoftTimeout is the maximum allowed gap since LastActivity.
	SoftTimeout time.Duration
}

// sessionService enforces the single-active-session invariant over the
// four per-user key slots held by the SessionStore.
type sessionService struct {
	store       driven.SessionStore
	lock        driven.DistributedLock
	logger      *slog.Logger
	ttl         time.Duration
	softTimeout time.Duration
}

// NewSessionAuthority creates a new SessionAuthority.
func NewSessionAuthority(cfg SessionAuthorityConfig) driving.SessionAuthority {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultSessionTTL
	}
	if cfg.SoftTimeout <= 0 {
		cfg.SoftTimeout = domain.DefaultSoftTimeout
	}
	return &sessionService{
		store:       cfg.Store,
		lock:        cfg.Lock,
		logger:      cfg.Logger,
		ttl:         cfg.TTL,
		softTimeout: cfg.SoftTimeout,
	}
}

// CreateSession purges any prior session for the user and installs a new
// one. The previous session is gone the moment this returns: a login on
// a second device silently signs the first one out.
func (s *sessionService) CreateSession(ctx context.Context, userID string, meta domain.Metadata) (*domain.CreateResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}

	if release := s.acquireUserLock(ctx, userID); release != nil {
		defer release()
	}

	// Purge must complete before any new state is written, so a failed
	// purge fails the whole creation.
	if err := s.store.Delete(ctx, userID); err != nil {
		s.logger.Error("create session: purge of previous session failed",
			"user_id", userID, "error", err)
		return nil, domain.ErrSessionCreation
	}

	now := time.Now().UTC()
	record := &domain.SessionRecord{
		UserID:       userID,
		SessionID:    domain.NewSessionID(),
		CreatedAt:    now,
		LastActivity: now,
		Metadata:     meta,
	}

	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Error("create session: persist failed",
			"user_id", userID, "error", err)
		return nil, domain.ErrSessionCreation
	}

	metrics.SessionsCreated.Inc()

	return &domain.CreateResult{
		SessionID: record.SessionID,
		ExpiresIn: int64(s.ttl.Seconds()),
		Record:    record,
	}, nil
}

// ValidateSession checks the active pointer, loads the record, applies
// the soft-expiry policy, and refreshes activity and TTLs. All failure
// paths resolve to a structured verdict; this method never returns a Go
// error.
func (s *sessionService) ValidateSession(ctx context.Context, userID, sessionID string) domain.Validation {
	if userID == "" || sessionID == "" {
		return s.verdict(domain.Invalid(domain.CodeInvalidParameters,
			"userId and sessionId are required"))
	}

	activeID, err := s.store.ActiveID(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.verdict(domain.Invalid(domain.CodeInvalidSession,
			"session superseded by a newer login or no longer active"))
	case err != nil:
		s.logger.Error("validate session: pointer read failed",
			"user_id", userID, "error", err)
		return s.verdict(domain.Invalid(domain.CodeValidationError,
			"session validation failed, please retry"))
	case activeID != sessionID:
		// The mechanism by which a newer login elsewhere invalidates
		// this caller. Not an error for the system, only for them.
		return s.verdict(domain.Invalid(domain.CodeInvalidSession,
			"session superseded by a newer login or no longer active"))
	}

	record, err := s.store.Get(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCorruptRecord):
		if errors.Is(err, domain.ErrCorruptRecord) {
			s.logger.Warn("validate session: corrupt record treated as missing",
				"user_id", userID)
		}
		return s.verdict(domain.Invalid(domain.CodeSessionNotFound,
			"session record not found"))
	case err != nil:
		s.logger.Error("validate session: record read failed",
			"user_id", userID, "error", err)
		return s.verdict(domain.Invalid(domain.CodeValidationError,
			"session validation failed, please retry"))
	}

	now := time.Now().UTC()
	if record.IsStale(now, s.softTimeout) {
		if err := s.store.Delete(ctx, userID); err != nil {
			s.logger.Error("validate session: stale purge failed",
				"user_id", userID, "error", err)
		}
		metrics.SessionsRevoked.WithLabelValues("stale").Inc()
		return s.verdict(domain.Invalid(domain.CodeSessionExpired,
			"session expired due to inactivity"))
	}

	record.LastActivity = now
	if err := s.store.Refresh(ctx, record); err != nil {
		s.logger.Error("validate session: activity refresh failed",
			"user_id", userID, "error", err)
		return s.verdict(domain.Invalid(domain.CodeUpdateFailed,
			"failed to refresh session activity"))
	}

	return s.verdict(domain.Valid(record))
}

// RemoveSession purges the user's session. With a sessionID it only
// purges when that session is still current, so a stale logout cannot
// remove a session installed by a newer login.
func (s *sessionService) RemoveSession(ctx context.Context, userID, sessionID string) error {
	if userID == "" {
		return domain.ErrInvalidInput
	}

	if sessionID == "" {
		if err := s.store.Delete(ctx, userID); err != nil {
			return err
		}
		metrics.SessionsRevoked.WithLabelValues("logout").Inc()
		return nil
	}

	removed, err := s.store.DeleteIfCurrent(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if removed {
		metrics.SessionsRevoked.WithLabelValues("logout").Inc()
	}
	return nil
}

// RemoveAllUserSessions unconditionally purges every slot for the user.
// Used by account deletion and internally before a new login. Never
// returns an error; the boolean reports whether the purge completed.
func (s *sessionService) RemoveAllUserSessions(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		s.logger.Error("remove all sessions failed", "user_id", userID, "error", err)
		return false
	}
	metrics.SessionsRevoked.WithLabelValues("account").Inc()
	return true
}

// UpdateLastActivity bumps the activity timestamp for the user's current
// session and refreshes dependent TTLs. Returns false when the user has
// no session or the refresh could not be persisted.
func (s *sessionService) UpdateLastActivity(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("update activity: record read failed",
				"user_id", userID, "error", err)
		}
		return false
	}

	record.LastActivity = time.Now().UTC()
	if err := s.store.Refresh(ctx, record); err != nil {
		s.logger.Error("update activity: refresh failed",
			"user_id", userID, "error", err)
		return false
	}
	return true
}

// GetActiveSession returns the user's current record, or nil when none
// exists. A pointer without a record is a split-brain state; it is
// self-healed by purging the dangling slots.
func (s *sessionService) GetActiveSession(ctx context.Context, userID string) (*domain.SessionRecord, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}

	_, err := s.store.ActiveID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record, err := s.store.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCorruptRecord) {
		s.logger.Warn("active pointer without a usable record, self-healing",
			"user_id", userID)
		if derr := s.store.Delete(ctx, userID); derr != nil {
			return nil, derr
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// LookupSession resolves a session id to its record via the reverse
// index. A reverse index that no longer matches the active record is
// treated as not found.
func (s *sessionService) LookupSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidInput
	}

	userID, err := s.store.UserBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record.SessionID != sessionID {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// acquireUserLock takes the per-user create lock with a few short
// retries. Creation proceeds without the lock rather than failing the
// login; the store-level replace is still ordered per key.
func (s *sessionService) acquireUserLock(ctx context.Context, userID string) func() {
	if s.lock == nil {
		return nil
	}

	name := "user:" + userID
	for attempt := 0; attempt < createLockAttempts; attempt++ {
		acquired, err := s.lock.Acquire(ctx, name, createLockTTL)
		if err != nil {
			s.logger.Warn("create session: lock unavailable",
				"user_id", userID, "error", err)
			return nil
		}
		if acquired {
			return func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
					s.logger.Warn("create session: lock release failed",
						"user_id", userID, "error", err)
				}
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(createLockBackoff):
		}
	}

	s.logger.Warn("create session: proceeding without user lock", "user_id", userID)
	return nil
}

func (s *sessionService) verdict(v domain.Validation) domain.Validation {
	result := "valid"
	if !v.IsValid {
		result = string(v.Code)
	}
	metrics.SessionValidations.WithLabelValues(result).Inc()
	return v
}
