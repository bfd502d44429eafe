package discord

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// newTestClient points a client at a local server and replaces the
// sleep function with a recorder so tests run instantly.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var sleeps []time.Duration
	c := NewClient("token-abc", "test-agent/1.0",
		WithBaseURL(server.URL),
		WithLogger(zerolog.Nop()),
	)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return c, &sleeps
}

func TestGetSuccess(t *testing.T) {
	var gotAuth, gotAgent string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"id":"123"}`))
	}))

	raw, err := c.Get(context.Background(), "/guilds/1", nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(raw) != `{"id":"123"}` {
		t.Errorf("body = %s", raw)
	}
	if gotAuth != "token-abc" {
		t.Errorf("Authorization = %q, want token sent verbatim", gotAuth)
	}
	if gotAgent != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
}

func TestGetNoContent(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	raw, err := c.Get(context.Background(), "/x", nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if raw != nil {
		t.Errorf("expected nil body for 204, got %s", raw)
	}
}

// Three 429s followed by success: three sleeps of the advertised
// Retry-After, and no retry budget consumed.
func TestGetRateLimited(t *testing.T) {
	var calls int
	c, sleeps := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 3 {
			w.Header().Set("Retry-After", "0.5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))

	if _, err := c.Get(context.Background(), "/channels/1/messages", nil); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	want := 500 * time.Millisecond
	if len(*sleeps) != 3 {
		t.Fatalf("sleeps = %v, want 3 entries", *sleeps)
	}
	for _, d := range *sleeps {
		if d != want {
			t.Errorf("sleep = %v, want %v", d, want)
		}
	}
}

func TestGetRateLimitExhausted(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0.1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.Get(context.Background(), "/x", nil)
	if !IsStatus(err, http.StatusTooManyRequests) {
		t.Fatalf("expected 429 APIError, got %v", err)
	}
	// Initial request plus MaxRateLimitRetries waits.
	if calls != MaxRateLimitRetries+1 {
		t.Errorf("calls = %d, want %d", calls, MaxRateLimitRetries+1)
	}
}

func TestGetRateLimitDefaultRetryAfter(t *testing.T) {
	var calls int
	c, sleeps := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))

	if _, err := c.Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != time.Second {
		t.Errorf("sleeps = %v, want one 1s default", *sleeps)
	}
}

func TestGetForbiddenImmediate(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Missing Access","code":50001}`))
	}))

	_, err := c.Get(context.Background(), "/channels/5/messages", nil)
	if !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Missing Access" {
		t.Errorf("message not extracted from JSON body: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, 403 must not be retried", calls)
	}
}

func TestGetServerErrorRetried(t *testing.T) {
	var calls int
	c, sleeps := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))

	if _, err := c.Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// Backoff doubles: 1s then 2s.
	if len(*sleeps) != 2 || (*sleeps)[0] != InitialBackoff || (*sleeps)[1] != 2*InitialBackoff {
		t.Errorf("sleeps = %v, want [1s 2s]", *sleeps)
	}
}

func TestGetServerErrorExhausted(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.Get(context.Background(), "/x", nil)
	if !IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("expected 500 APIError after exhaustion, got %v", err)
	}
	if calls != MaxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, MaxRetries+1)
	}
}

func TestGetContextCancelled(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Get(ctx, "/x", nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Second},
		{"2", 2 * time.Second},
		{"0.25", 250 * time.Millisecond},
		{"garbage", time.Second},
		{"-1", time.Second},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
