package core

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Defaults for the retry policy.
const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 8 * time.Second
)

// RetryPolicy determines retry behavior for failed requests.
type RetryPolicy interface {
	// NextDelay returns the delay before the next retry attempt and whether to retry.
	// If ok is false, no more retries should be attempted.
	// attempt starts at 0 for the first retry after the initial failure.
	NextDelay(attempt int, err error) (delay time.Duration, ok bool)
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt (default: 2)
	BaseDelay  time.Duration // Backoff before the first retry (default: 500ms)
	MaxDelay   time.Duration // Cap for backoff and server hints (default: 8s)

	// Jitter draws the actual delay from [0, max]. Nil means uniform.
	Jitter func(max time.Duration) time.Duration
}

// DefaultRetryConfig returns the default configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// DefaultRetryPolicy returns a retry policy with sensible defaults.
// Uses exponential backoff with full jitter, max 2 retries, 8s max delay.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(DefaultRetryConfig())
}

// NewRetryPolicy creates a retry policy with the given configuration.
// A zero MaxRetries disables retries.
func NewRetryPolicy(cfg RetryConfig) RetryPolicy {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Jitter == nil {
		cfg.Jitter = fullJitter
	}
	return &exponentialBackoff{cfg: cfg}
}

// Backoff returns the pre-jitter delay for a 0-based retry attempt:
// min(MaxDelay, BaseDelay * 2^attempt).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := c.BaseDelay
	for i := 0; i < attempt; i++ {
		if d >= c.MaxDelay {
			break
		}
		d *= 2
	}
	return min(d, c.MaxDelay)
}

func fullJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max + 1)
}

type exponentialBackoff struct {
	cfg RetryConfig
}

func (e *exponentialBackoff) NextDelay(attempt int, err error) (time.Duration, bool) {
	if attempt >= e.cfg.MaxRetries {
		return 0, false
	}
	if !IsRetryable(err) {
		return 0, false
	}

	// A server hint replaces the computed backoff for this attempt only.
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return min(apiErr.RetryAfter, e.cfg.MaxDelay), true
	}

	delay := e.cfg.Jitter(e.cfg.Backoff(attempt))
	return max(0, min(delay, e.cfg.MaxDelay)), true
}

// IsRetryable reports whether err is a failure the retry policy may retry:
// transport failures and API errors with status 408, 409, 429 or 5xx. The
// x-should-retry header overrides the status in both directions.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation is not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ErrMiddleware) ||
		errors.Is(err, ErrSerialization) ||
		errors.Is(err, ErrStreamProtocol) ||
		errors.Is(err, ErrRetriesExhausted) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.ShouldRetry != nil {
			return *apiErr.ShouldRetry
		}
		return isRetryableStatus(apiErr.Status)
	}

	return errors.Is(err, ErrTransport)
}

// isRetryableStatus checks if an HTTP status code indicates a retryable error.
func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return status >= 500 && status < 600
}

// ParseRetryAfter reads the server wait hint. retry-after-ms (milliseconds)
// takes precedence over retry-after (seconds or an HTTP date). It returns
// zero when no usable hint is present.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	if v := h.Get("retry-after-ms"); v != "" {
		if ms, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	v := strings.TrimSpace(h.Get("retry-after"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// ParseShouldRetry reads the x-should-retry header. It returns nil when the
// header is absent or not a boolean.
func ParseShouldRetry(h http.Header) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(h.Get("x-should-retry"))) {
	case "true":
		v = true
	case "false":
		v = false
	default:
		return nil
	}
	return &v
}
