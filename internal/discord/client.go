// Package discord is a REST client for the platform API.
//
// The client wraps GET requests with the host's retry, rate-limit, and
// error contracts:
//   - 429 responses honor Retry-After and are bounded by their own
//     counter; they never consume the retry budget
//   - 5xx and transport failures retry with exponential backoff
//   - 401/403/404 fail immediately with the decoded error message
//
// Requests are synchronous; the only suspension points are the network
// round trip and the sleeps between retries, both of which honor the
// caller's context.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the versioned REST API root.
const DefaultBaseURL = "https://discord.com/api/v10"

const (
	// MaxRetries bounds retries for 5xx and transport failures.
	MaxRetries = 5

	// MaxRateLimitRetries caps consecutive 429 sleeps for one request.
	MaxRateLimitRetries = 30

	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff = 1 * time.Second

	// MaxBackoff caps the exponential backoff schedule.
	MaxBackoff = 64 * time.Second

	requestTimeout = 30 * time.Second
)

// APIError is a non-retryable (or retry-exhausted) platform API error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client is a single-account REST client. One client per token: the
// remote enforces per-token rate limits and the connection pool is
// keyed by account. Stateless across requests otherwise.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger

	// sleep is swapped out in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (tests point it at a local server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger overrides the client's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client for one account. The token is sent verbatim
// in the Authorization header.
func NewClient(token, userAgent string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     log.Logger,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request with retry, backoff, and rate-limit
// handling. It returns the decoded response body, or nil for 204.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	correlationID := uuid.New().String()
	logger := c.logger.With().
		Str("path", path).
		Str("correlation_id", correlationID).
		Logger()

	backoff := InitialBackoff
	rateLimitRetries := 0

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		body, retryAfter, err := c.roundTrip(ctx, path, query)

		switch {
		case err == nil:
			return body, nil

		case errors.Is(err, errRateLimited):
			// Rate-limit waits are bounded separately and do not
			// consume the retry budget.
			rateLimitRetries++
			if rateLimitRetries > MaxRateLimitRetries {
				return nil, &APIError{StatusCode: http.StatusTooManyRequests, Message: "max rate limit retries exceeded"}
			}
			logger.Warn().
				Float64("retry_after_s", retryAfter.Seconds()).
				Int("rate_limit_retries", rateLimitRetries).
				Msg("rate limited, waiting")
			if err := c.sleep(ctx, retryAfter); err != nil {
				return nil, err
			}
			attempt-- // does not count against the budget

		case isRetryable(err):
			if attempt >= MaxRetries {
				return nil, err
			}
			logger.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", MaxRetries).
				Dur("backoff", backoff).
				Msg("transient failure, retrying")
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff = min(backoff*2, MaxBackoff)

		default:
			return nil, err
		}
	}

	return nil, &APIError{StatusCode: http.StatusInternalServerError, Message: "max retries exceeded"}
}

// errRateLimited is an internal marker for 429 responses.
var errRateLimited = errors.New("rate limited")

// retryableError wraps transient failures (5xx, timeouts, transport).
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// roundTrip issues a single request and classifies the response.
// The second return value is the Retry-After duration for 429s.
func (c *Client) roundTrip(ctx context.Context, path string, query url.Values) (json.RawMessage, time.Duration, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		// Timeouts and connection failures are retried like 5xx.
		return nil, 0, &retryableError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &retryableError{err: err}
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, 0, nil

	case resp.StatusCode == http.StatusNoContent:
		return nil, 0, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), errRateLimited

	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return nil, 0, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}

	case resp.StatusCode >= 500:
		return nil, 0, &retryableError{
			err: &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)},
		}

	default:
		return nil, 0, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
}

// errorMessage extracts the "message" field from an error body when the
// body is decodable JSON, falling back to the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return string(body)
}

// parseRetryAfter reads a Retry-After value in (possibly fractional)
// seconds, defaulting to 1s when absent or malformed.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return time.Second
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
