package core

import "time"

// TelemetryHook receives notifications about request lifecycle events.
// Implementations can use this for logging, metrics, tracing, etc.
//
// # Security Considerations
//
// Event types never include sensitive data:
//   - API keys and OAuth tokens are never included (stored as core.Secret)
//   - Prompt content is never included
//   - Response content is never included
//   - Only operational metadata is exposed (provider, model, timing, status, token counts)
//
// If extending this interface, keep these properties. Never add fields that
// could contain credentials, prompts or model output.
type TelemetryHook interface {
	// OnRequestStart is called once per call, before the first attempt.
	OnRequestStart(e RequestStartEvent)

	// OnRetry is called before the executor waits to retry a failed attempt.
	OnRetry(e RetryEvent)

	// OnRequestEnd is called once per call. For streaming calls it fires when
	// the response body is closed.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent contains metadata about a starting request.
type RequestStartEvent struct {
	CallID   string    // Correlates events of one call
	Provider string    // Backend identifier (e.g., "anthropic", "bedrock")
	Method   string    // HTTP method
	Path     string    // URL path before middleware rewrites
	Model    string    // Model named in the request body, if any
	Stream   bool      // Whether the call streams its response
	Start    time.Time // When the request started
}

// RetryEvent describes a failed attempt that will be retried.
type RetryEvent struct {
	CallID  string
	Attempt int           // 0-based attempt that failed
	Delay   time.Duration // Wait before the next attempt
	Status  int           // HTTP status, zero for transport failures
	Err     error
}

// RequestEndEvent contains metadata about a completed request.
//
// The Err field carries the SDK error value. APIError messages come from the
// server and never echo request content.
type RequestEndEvent struct {
	CallID   string
	Provider string
	Method   string
	Path     string
	Model    string
	Stream   bool
	Start    time.Time // When the request started
	End      time.Time // When the request completed
	Attempts int       // Number of attempts made
	Status   int       // Final HTTP status, zero if none was received
	Usage    Usage     // Token consumption, zero for streaming calls
	Err      error     // Error if request failed, nil on success
}

// Usage is the token accounting reported in a response body.
type Usage struct {
	InputTokens              int
	OutputTokens             int
	CacheCreationInputTokens int
	CacheReadInputTokens     int
}

// Duration returns the elapsed time for the request.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
// Use this as a default when no telemetry is configured.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnRetry does nothing.
func (NoopTelemetryHook) OnRetry(RetryEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}

// Compile-time check that NoopTelemetryHook implements TelemetryHook.
var _ TelemetryHook = NoopTelemetryHook{}
