package core

import (
	"testing"
	"time"
)

func TestRequestEndEventDuration(t *testing.T) {
	start := time.Now()
	e := RequestEndEvent{Start: start, End: start.Add(500 * time.Millisecond)}
	if got := e.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}
}

func TestNoopTelemetryHook(t *testing.T) {
	var hook TelemetryHook = NoopTelemetryHook{}

	// Must not panic.
	hook.OnRequestStart(RequestStartEvent{Provider: "anthropic", Model: "claude-sonnet-4-5"})
	hook.OnRetry(RetryEvent{Attempt: 0, Delay: time.Second, Status: 429})
	hook.OnRequestEnd(RequestEndEvent{Provider: "anthropic", Attempts: 2})
}
