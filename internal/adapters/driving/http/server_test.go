package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arclight-labs/session-core/internal/core/domain"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func newTestServer(pinger *stubPinger, auth *AuthMiddleware) *Server {
	return NewServer(Config{Host: "127.0.0.1", Port: 0, Version: "test"}, pinger, auth)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(&stubPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServer_Ready(t *testing.T) {
	srv := newTestServer(&stubPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServer_Ready_StoreDown(t *testing.T) {
	srv := newTestServer(&stubPinger{err: errors.New("store unreachable")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestServer_Version(t *testing.T) {
	srv := newTestServer(&stubPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("expected version test, got %s", body["version"])
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(&stubPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServer_SessionEndpoint(t *testing.T) {
	record := &domain.SessionRecord{UserID: "user-1", SessionID: "sess-a"}
	auth := NewAuthMiddleware(
		&stubCodec{userID: "user-1", sessionID: "sess-a"},
		&stubAuthority{verdict: domain.Valid(record)},
	)
	srv := newTestServer(&stubPinger{}, auth)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body domain.SessionRecord
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.SessionID != "sess-a" {
		t.Errorf("expected sess-a, got %s", body.SessionID)
	}
}

func TestServer_SessionEndpoint_Unauthenticated(t *testing.T) {
	auth := NewAuthMiddleware(&stubCodec{}, &stubAuthority{})
	srv := newTestServer(&stubPinger{}, auth)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServer_SessionEndpoint_NotMountedWithoutAuth(t *testing.T) {
	srv := newTestServer(&stubPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
