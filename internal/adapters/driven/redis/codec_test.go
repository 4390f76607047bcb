package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/arclight-labs/session-core/internal/core/domain"
)

func TestEncodeValue(t *testing.T) {
	t.Run("string passes through", func(t *testing.T) {
		got, err := EncodeValue("plain")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "plain" {
			t.Errorf("expected %q, got %q", "plain", got)
		}
	})

	t.Run("bytes pass through", func(t *testing.T) {
		got, err := EncodeValue([]byte("raw"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "raw" {
			t.Errorf("expected %q, got %q", "raw", got)
		}
	})

	t.Run("struct serializes to json", func(t *testing.T) {
		record := &domain.SessionRecord{UserID: "user-1", SessionID: "abc"}
		got, err := EncodeValue(record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var parsed domain.SessionRecord
		if err := json.Unmarshal([]byte(got), &parsed); err != nil {
			t.Fatalf("encoded value is not valid json: %v", err)
		}
		if parsed.UserID != "user-1" {
			t.Errorf("expected user-1, got %s", parsed.UserID)
		}
	})

	t.Run("unserializable value errors", func(t *testing.T) {
		if _, err := EncodeValue(make(chan int)); err == nil {
			t.Error("expected error for unserializable value")
		}
	})
}

func TestDecodeValue(t *testing.T) {
	t.Run("session record is structured", func(t *testing.T) {
		record := domain.SessionRecord{
			UserID:       "user-1",
			SessionID:    "abc",
			CreatedAt:    time.Now().UTC(),
			LastActivity: time.Now().UTC(),
		}
		payload, _ := json.Marshal(record)

		value := DecodeValue(string(payload))
		if value.Kind != domain.ValueStructured {
			t.Fatalf("expected structured value, got %v", value.Kind)
		}
		if value.Record.UserID != "user-1" {
			t.Errorf("expected user-1, got %s", value.Record.UserID)
		}
		if value.Raw != string(payload) {
			t.Error("expected Raw to carry the original payload")
		}
	})

	t.Run("plain string is raw", func(t *testing.T) {
		value := DecodeValue("some-session-id")
		if value.Kind != domain.ValueRaw {
			t.Fatalf("expected raw value, got %v", value.Kind)
		}
		if value.Raw != "some-session-id" {
			t.Errorf("expected original payload, got %q", value.Raw)
		}
		if value.Record != nil {
			t.Error("raw value should carry no record")
		}
	})

	t.Run("malformed json is corrupt", func(t *testing.T) {
		value := DecodeValue(`{"userId": "user-1", truncated`)
		if value.Kind != domain.ValueCorrupt {
			t.Fatalf("expected corrupt value, got %v", value.Kind)
		}
	})

	t.Run("json without identity pair is corrupt", func(t *testing.T) {
		value := DecodeValue(`{"something": "else"}`)
		if value.Kind != domain.ValueCorrupt {
			t.Fatalf("expected corrupt value, got %v", value.Kind)
		}
	})

	t.Run("leading whitespace still parses", func(t *testing.T) {
		record := domain.SessionRecord{UserID: "user-1", SessionID: "abc"}
		payload, _ := json.Marshal(record)

		value := DecodeValue("  " + string(payload))
		if value.Kind != domain.ValueStructured {
			t.Fatalf("expected structured value, got %v", value.Kind)
		}
	})
}
