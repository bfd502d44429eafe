// Package jsonutil cleans decoded API payloads before persistence.
//
// PostgreSQL rejects NUL bytes (0x00) in text and jsonb values, and the
// platform does not prevent users from embedding them in message content.
// Every string reaching the database, including strings nested inside the
// raw payload blob, must be scrubbed first.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SanitizeValue removes NUL bytes from every string reachable from v.
// Maps and slices are walked recursively; map keys are left untouched
// (the platform never emits keys containing control characters).
func SanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return strings.ReplaceAll(val, "\x00", "")
	case map[string]any:
		for k, item := range val {
			val[k] = SanitizeValue(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = SanitizeValue(item)
		}
		return val
	default:
		return v
	}
}

// SanitizeRaw decodes a raw JSON document, scrubs NUL bytes from all of
// its strings, and re-encodes it. The result is safe to store as jsonb.
func SanitizeRaw(raw json.RawMessage) (json.RawMessage, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	out, err := json.Marshal(SanitizeValue(v))
	if err != nil {
		return nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, nil
}
