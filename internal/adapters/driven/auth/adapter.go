package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/arclight-labs/session-core/internal/core/domain"
	"github.com/arclight-labs/session-core/internal/core/ports/driven"
)

// Ensure Adapter implements TokenCodec
var _ driven.TokenCodec = (*Adapter)(nil)

// tokenClaims is the JWT payload binding a user to their single active
// session. Validation of the session itself happens against the store;
// the token only carries the identity pair.
type tokenClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Adapter signs and parses the credential tokens consumers attach to
// requests after login.
type Adapter struct {
	secret   []byte
	lifetime time.Duration
}

// NewAdapter creates a token codec with the given signing secret. The
// token lifetime matches the session TTL so a token never outlives the
// hard expiry of the state it points at.
func NewAdapter(secret string, lifetime time.Duration) *Adapter {
	if lifetime <= 0 {
		lifetime = domain.DefaultSessionTTL
	}
	return &Adapter{secret: []byte(secret), lifetime: lifetime}
}

// Generate creates a signed HS256 token embedding the identity pair.
func (a *Adapter) Generate(userID, sessionID string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Parse validates a token and returns the embedded identity pair.
func (a *Adapter) Parse(tokenString string) (string, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", "", domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID == "" || claims.SessionID == "" {
		return "", "", domain.ErrTokenInvalid
	}
	return claims.UserID, claims.SessionID, nil
}
