package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arclight-labs/session-core/internal/core/domain"
	"github.com/arclight-labs/session-core/internal/core/ports/driven"
	"github.com/arclight-labs/session-core/internal/core/ports/driving"
)

// Context keys
type contextKey string

const authContextKey contextKey = "auth_context"

// AuthContext carries the validated identity pair and the refreshed
// session record for downstream handlers.
type AuthContext struct {
	UserID    string
	SessionID string
	Session   *domain.SessionRecord
}

// AuthMiddleware extracts the credential token from a request, resolves
// it to (userID, sessionID), and validates the pair against the session
// authority. Every failure resolves to a mapped response; handlers never
// see an unauthenticated request.
type AuthMiddleware struct {
	codec     driven.TokenCodec
	authority driving.SessionAuthority
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(codec driven.TokenCodec, authority driving.SessionAuthority) *AuthMiddleware {
	return &AuthMiddleware{codec: codec, authority: authority}
}

// Authenticate validates the request credential and injects AuthContext.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		userID, sessionID, err := m.codec.Parse(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		verdict := m.authority.ValidateSession(r.Context(), userID, sessionID)
		if !verdict.IsValid {
			status, message := responseFor(verdict.Code)
			writeError(w, status, message)
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, &AuthContext{
			UserID:    userID,
			SessionID: sessionID,
			Session:   verdict.Session,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseFor maps a validation code to the status and message shown to
// the caller. A session superseded by a newer login reads differently
// from one that simply timed out.
func responseFor(code domain.ValidationCode) (int, string) {
	switch code {
	case domain.CodeInvalidSession:
		return http.StatusUnauthorized, "you were signed out because your account was used elsewhere"
	case domain.CodeSessionExpired:
		return http.StatusUnauthorized, "your session timed out, please sign in again"
	case domain.CodeValidationError, domain.CodeUpdateFailed:
		return http.StatusServiceUnavailable, "temporary problem verifying your session, please retry"
	default:
		return http.StatusUnauthorized, "invalid session"
	}
}

// GetAuthContext retrieves the auth context from request context.
func GetAuthContext(ctx context.Context) *AuthContext {
	if ctx == nil {
		return nil
	}
	authCtx, ok := ctx.Value(authContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Logging middleware

// LoggingMiddleware logs HTTP requests
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware
func NewLoggingMiddleware(logger *slog.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMiddleware{logger: logger}
}

// Handler wraps an http.Handler with request logging
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery middleware

// RecoveryMiddleware recovers from panics
type RecoveryMiddleware struct {
	logger *slog.Logger
}

// NewRecoveryMiddleware creates a new RecoveryMiddleware
func NewRecoveryMiddleware(logger *slog.Logger) *RecoveryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryMiddleware{logger: logger}
}

// Handler wraps an http.Handler with panic recovery
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("panic recovered", "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
