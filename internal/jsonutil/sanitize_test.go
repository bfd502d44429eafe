package jsonutil

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{
			name: "plain string",
			in:   "hi\x00bye",
			want: "hibye",
		},
		{
			name: "clean string untouched",
			in:   "hello",
			want: "hello",
		},
		{
			name: "nested map",
			in:   map[string]any{"content": "a\x00b", "n": float64(3)},
			want: map[string]any{"content": "ab", "n": float64(3)},
		},
		{
			name: "nested list",
			in:   []any{"x\x00", map[string]any{"v": "y\x00z"}},
			want: []any{"x", map[string]any{"v": "yz"}},
		},
		{
			name: "non-string scalar",
			in:   true,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeValue(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SanitizeValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSanitizeRaw(t *testing.T) {
	raw := json.RawMessage("{\"content\":\"hi\\u0000bye\",\"embeds\":[{\"title\":\"a\\u0000\"}]}")

	out, err := SanitizeRaw(raw)
	if err != nil {
		t.Fatalf("SanitizeRaw() error: %v", err)
	}

	if strings.Contains(string(out), "\\u0000") || strings.Contains(string(out), "\x00") {
		t.Errorf("sanitized output still contains NUL: %s", out)
	}

	var decoded struct {
		Content string `json:"content"`
		Embeds  []struct {
			Title string `json:"title"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal sanitized: %v", err)
	}
	if decoded.Content != "hibye" {
		t.Errorf("content = %q, want %q", decoded.Content, "hibye")
	}
	if decoded.Embeds[0].Title != "a" {
		t.Errorf("embed title = %q, want %q", decoded.Embeds[0].Title, "a")
	}
}

func TestSanitizeRawInvalid(t *testing.T) {
	if _, err := SanitizeRaw(json.RawMessage("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
