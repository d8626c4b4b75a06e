package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAPIErrorImplementsError(t *testing.T) {
	err := &APIError{
		Provider:  "anthropic",
		Status:    401,
		Type:      "authentication_error",
		Message:   "invalid x-api-key",
		RequestID: "req_123",
	}

	errStr := err.Error()
	for _, want := range []string{"anthropic", "401", "authentication_error", "req_123", "invalid x-api-key"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("Error() = %q, should contain %q", errStr, want)
		}
	}
}

func TestAPIErrorWithoutRequestID(t *testing.T) {
	err := &APIError{Provider: "anthropic", Status: 429, Type: "rate_limit_error", Message: "slow down"}
	if strings.Contains(err.Error(), "request_id") {
		t.Errorf("Error() = %q, should not contain request_id when empty", err.Error())
	}
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
		wantMsg  string
		wantErr  error
	}{
		{
			name:     "structured body",
			status:   429,
			body:     `{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests exceeded"}}`,
			wantType: "rate_limit_error",
			wantMsg:  "Number of requests exceeded",
			wantErr:  ErrRateLimited,
		},
		{
			name:     "type wins over status",
			status:   500,
			body:     `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantType: "overloaded_error",
			wantMsg:  "Overloaded",
			wantErr:  ErrOverloaded,
		},
		{
			name:     "unknown type falls back to status",
			status:   404,
			body:     `{"type":"error","error":{"type":"brand_new_error","message":"gone"}}`,
			wantType: "brand_new_error",
			wantMsg:  "gone",
			wantErr:  ErrNotFound,
		},
		{
			name:     "top level message",
			status:   403,
			body:     `{"message":"User is not authorized"}`,
			wantType: "unknown_error",
			wantMsg:  "User is not authorized",
			wantErr:  ErrPermissionDenied,
		},
		{
			name:     "plain text body",
			status:   502,
			body:     "bad gateway\n",
			wantType: "unknown_error",
			wantMsg:  "bad gateway",
			wantErr:  ErrServer,
		},
		{
			name:     "empty body",
			status:   409,
			body:     "",
			wantType: "unknown_error",
			wantMsg:  "Conflict",
			wantErr:  ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set("request-id", "req_1")
			err := NewAPIError("anthropic", tt.status, h, []byte(tt.body))
			if err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", err.Type, tt.wantType)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(err, %v) = false", tt.wantErr)
			}
			if err.RequestID != "req_1" {
				t.Errorf("RequestID = %q, want req_1", err.RequestID)
			}
		})
	}
}

func TestNewAPIErrorReadsHints(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after", "2")
	h.Set("x-should-retry", "false")
	err := NewAPIError("anthropic", 429, h, nil)
	if err.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %v, want 2s", err.RetryAfter)
	}
	if err.ShouldRetry == nil || *err.ShouldRetry {
		t.Errorf("ShouldRetry = %v, want false", err.ShouldRetry)
	}
}

func TestErrorKindsUnwrap(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"transport", &TransportError{Op: "POST /v1/messages", Err: cause}, ErrTransport},
		{"serialization", &SerializationError{Context: "decode", Err: cause}, ErrSerialization},
		{"retries exhausted", &RetriesExhaustedError{Attempts: 3, Last: cause}, ErrRetriesExhausted},
		{"middleware", &MiddlewareError{Middleware: "auth", Err: cause}, ErrMiddleware},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, kind) = false", tt.err)
			}
			if !errors.Is(tt.err, cause) {
				t.Errorf("errors.Is(%v, cause) = false", tt.err)
			}
			wrapped := fmt.Errorf("call: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("wrapped error lost its kind")
			}
		})
	}
}

func TestStreamProtocolError(t *testing.T) {
	err := &StreamProtocolError{Event: "content_block_delta", Reason: "index 1 has not started"}
	if !errors.Is(err, ErrStreamProtocol) {
		t.Error("errors.Is(err, ErrStreamProtocol) = false")
	}
	if !strings.Contains(err.Error(), "content_block_delta") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRetriesExhaustedKeepsLastFailure(t *testing.T) {
	last := &APIError{Provider: "anthropic", Status: 429, Err: ErrRateLimited}
	err := &RetriesExhaustedError{Attempts: 3, Last: last}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("errors.As(err, *APIError) = false")
	}
	if apiErr.Status != 429 {
		t.Errorf("Status = %d, want 429", apiErr.Status)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("errors.Is(err, ErrRateLimited) = false")
	}
}

func TestSentinelFor(t *testing.T) {
	tests := []struct {
		status  int
		errType string
		want    error
	}{
		{400, "invalid_request_error", ErrBadRequest},
		{401, "", ErrUnauthorized},
		{403, "", ErrPermissionDenied},
		{404, "", ErrNotFound},
		{408, "", ErrTimeout},
		{409, "", ErrConflict},
		{413, "request_too_large", ErrRequestTooLarge},
		{429, "", ErrRateLimited},
		{500, "api_error", ErrServer},
		{503, "", ErrServer},
		{529, "", ErrOverloaded},
		{418, "", nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.status, tt.errType), func(t *testing.T) {
			if got := SentinelFor(tt.status, tt.errType); got != tt.want {
				t.Errorf("SentinelFor(%d, %q) = %v, want %v", tt.status, tt.errType, got, tt.want)
			}
		})
	}
}

func TestSentinelErrorsAreDifferent(t *testing.T) {
	sentinels := []error{
		ErrTransport, ErrSerialization, ErrStreamProtocol, ErrRetriesExhausted, ErrMiddleware,
		ErrBadRequest, ErrUnauthorized, ErrPermissionDenied, ErrNotFound, ErrTimeout,
		ErrConflict, ErrRequestTooLarge, ErrRateLimited, ErrServer, ErrOverloaded,
		context.Canceled,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel errors should be distinct: %v == %v", a, b)
			}
		}
	}
}
