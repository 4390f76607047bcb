package redis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arclight-labs/session-core/internal/core/domain"
)

// EncodeValue renders a value for the string-only store. Strings and
// byte slices pass through; everything else is JSON-serialized.
func EncodeValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal value: %w", err)
		}
		return string(data), nil
	}
}

// DecodeValue classifies a stored payload without ever failing: a
// parseable session record is structured, a non-JSON payload is a raw
// legacy string, and a JSON-looking payload that doesn't parse into a
// record is corrupt. Raw always carries the original payload.
func DecodeValue(raw string) domain.StoredValue {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return domain.StoredValue{Kind: domain.ValueRaw, Raw: raw}
	}

	var record domain.SessionRecord
	if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
		return domain.StoredValue{Kind: domain.ValueCorrupt, Raw: raw}
	}
	if record.UserID == "" || record.SessionID == "" {
		// Valid JSON but not a session record.
		return domain.StoredValue{Kind: domain.ValueCorrupt, Raw: raw}
	}
	return domain.StoredValue{Kind: domain.ValueStructured, Record: &record, Raw: raw}
}
