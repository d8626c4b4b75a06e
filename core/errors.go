package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Failure kinds. Every error returned by a call matches exactly one of these
// with errors.Is, or is the caller's context error.
var (
	ErrTransport        = errors.New("transport failure")
	ErrSerialization    = errors.New("serialization failure")
	ErrStreamProtocol   = errors.New("stream protocol violation")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrMiddleware       = errors.New("middleware failure")
)

// Sentinel errors for API error classification. An *APIError unwraps to one
// of these based on its error type, falling back to the HTTP status.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("request timeout")
	ErrConflict         = errors.New("conflict")
	ErrRequestTooLarge  = errors.New("request too large")
	ErrRateLimited      = errors.New("rate limited")
	ErrServer           = errors.New("server error")
	ErrOverloaded       = errors.New("overloaded")
)

var typeSentinels = map[string]error{
	"invalid_request_error": ErrBadRequest,
	"authentication_error":  ErrUnauthorized,
	"permission_error":      ErrPermissionDenied,
	"not_found_error":       ErrNotFound,
	"request_too_large":     ErrRequestTooLarge,
	"rate_limit_error":      ErrRateLimited,
	"timeout_error":         ErrTimeout,
	"api_error":             ErrServer,
	"overloaded_error":      ErrOverloaded,
}

// SentinelFor maps an API error type and HTTP status to a classification
// sentinel. The error type wins when it is known.
func SentinelFor(status int, errType string) error {
	if s, ok := typeSentinels[errType]; ok {
		return s
	}
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrPermissionDenied
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusRequestTimeout:
		return ErrTimeout
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusRequestEntityTooLarge:
		return ErrRequestTooLarge
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == 529:
		return ErrOverloaded
	case status >= 500:
		return ErrServer
	}
	return nil
}

// APIError is a non-success HTTP response from the API.
type APIError struct {
	Provider  string
	Status    int
	Type      string // error discriminant, e.g. "rate_limit_error"
	Message   string
	RequestID string

	// RetryAfter is the server wait hint, zero when absent.
	RetryAfter time.Duration
	// ShouldRetry carries the x-should-retry header when present.
	ShouldRetry *bool

	Err error // classification sentinel
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d, type=%s, request_id=%s)",
			e.Provider, e.Message, e.Status, e.Type, e.RequestID)
	}
	return fmt.Sprintf("%s: %s (status=%d, type=%s)",
		e.Provider, e.Message, e.Status, e.Type)
}

// Unwrap returns the classification sentinel.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds an APIError from a response status, headers and body.
// The body is expected to be {"type":"error","error":{"type":..,"message":..}};
// anything else is reported as "unknown_error" with the raw body as message.
func NewAPIError(provider string, status int, header http.Header, body []byte) *APIError {
	e := &APIError{
		Provider:    provider,
		Status:      status,
		RequestID:   header.Get("request-id"),
		RetryAfter:  ParseRetryAfter(header, time.Now()),
		ShouldRetry: ParseShouldRetry(header),
	}

	errType := gjson.GetBytes(body, "error.type")
	errMsg := gjson.GetBytes(body, "error.message")
	switch {
	case errType.Type == gjson.String:
		e.Type = errType.Str
		e.Message = errMsg.String()
	case gjson.GetBytes(body, "message").Type == gjson.String:
		e.Type = "unknown_error"
		e.Message = gjson.GetBytes(body, "message").Str
	default:
		e.Type = "unknown_error"
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	e.Err = SentinelFor(status, e.Type)
	return e
}

// TransportError is a connection level failure: DNS, dial, TLS, reset, or an
// attempt that ran past its timeout.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transport failure: %s: attempt timed out", e.Op)
	}
	return fmt.Sprintf("transport failure: %s: %v", e.Op, e.Err)
}

// Unwrap returns ErrTransport and the underlying cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// SerializationError reports a request that could not be encoded or a
// response that could not be decoded.
type SerializationError struct {
	Context string
	Err     error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failure: %s: %v", e.Context, e.Err)
}

// Unwrap returns ErrSerialization and the underlying cause.
func (e *SerializationError) Unwrap() []error {
	return []error{ErrSerialization, e.Err}
}

// StreamProtocolError reports a stream event that arrived out of order.
type StreamProtocolError struct {
	Event  string
	Reason string
}

// Error implements the error interface.
func (e *StreamProtocolError) Error() string {
	if e.Event == "" {
		return "stream protocol violation: " + e.Reason
	}
	return fmt.Sprintf("stream protocol violation: %s: %s", e.Event, e.Reason)
}

// Unwrap returns ErrStreamProtocol.
func (e *StreamProtocolError) Unwrap() error {
	return ErrStreamProtocol
}

// RetriesExhaustedError is returned when a retryable failure persisted
// through the whole retry budget.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns ErrRetriesExhausted and the last failure.
func (e *RetriesExhaustedError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Last}
}

// MiddlewareError is a failure raised by a middleware itself rather than by
// the stages it wraps. It is never retried.
type MiddlewareError struct {
	Middleware string
	Err        error
}

// Error implements the error interface.
func (e *MiddlewareError) Error() string {
	return fmt.Sprintf("middleware failure: %s: %v", e.Middleware, e.Err)
}

// Unwrap returns ErrMiddleware and the underlying cause.
func (e *MiddlewareError) Unwrap() []error {
	return []error{ErrMiddleware, e.Err}
}
