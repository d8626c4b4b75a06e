// Package otel traces SDK calls with OpenTelemetry.
//
// Install the hook on a client:
//
//	client := anthropic.New(key, anthropic.WithTelemetry(otel.NewHook()))
//
// Each call becomes one client span covering every attempt. Retries are
// recorded as span events. Streaming spans end when the stream is closed.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/anthropic-go/core"
)

// ScopeName is the instrumentation scope of the spans.
const ScopeName = "github.com/petal-labs/anthropic-go/contrib/otel"

// Attribute keys.
const (
	AttrSystem       = attribute.Key("gen_ai.system")
	AttrRequestModel = attribute.Key("gen_ai.request.model")
	AttrInputTokens  = attribute.Key("gen_ai.usage.input_tokens")
	AttrOutputTokens = attribute.Key("gen_ai.usage.output_tokens")
	AttrCacheRead    = attribute.Key("gen_ai.usage.cache_read_input_tokens")
	AttrCacheWrite   = attribute.Key("gen_ai.usage.cache_creation_input_tokens")
	AttrMethod       = attribute.Key("http.request.method")
	AttrStatus       = attribute.Key("http.response.status_code")
	AttrPath         = attribute.Key("url.path")
	AttrCallID       = attribute.Key("anthropic.call_id")
	AttrStream       = attribute.Key("anthropic.stream")
	AttrAttempts     = attribute.Key("anthropic.attempts")
	AttrRetryDelay   = attribute.Key("anthropic.retry.delay_ms")
)

// Option configures a Hook.
type Option func(*Hook)

// WithTracerProvider sets the provider spans are created from. The default
// is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Hook) {
		if tp != nil {
			h.tracer = tp.Tracer(ScopeName)
		}
	}
}

// WithParent makes every span a child of the span in ctx.
func WithParent(ctx context.Context) Option {
	return func(h *Hook) {
		h.parent = ctx
	}
}

// Hook is a core.TelemetryHook that records spans. It is safe for
// concurrent use.
type Hook struct {
	tracer trace.Tracer
	parent context.Context
	spans  sync.Map // call id -> trace.Span
}

var _ core.TelemetryHook = (*Hook)(nil)

// NewHook creates a tracing hook.
func NewHook(opts ...Option) *Hook {
	h := &Hook{
		tracer: otel.GetTracerProvider().Tracer(ScopeName),
		parent: context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnRequestStart starts the call span.
func (h *Hook) OnRequestStart(e core.RequestStartEvent) {
	name := e.Method + " " + e.Path
	if e.Model != "" {
		name = "chat " + e.Model
	}
	_, span := h.tracer.Start(h.parent, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(e.Start),
		trace.WithAttributes(
			AttrSystem.String(e.Provider),
			AttrMethod.String(e.Method),
			AttrPath.String(e.Path),
			AttrCallID.String(e.CallID),
			AttrStream.Bool(e.Stream),
		),
	)
	if e.Model != "" {
		span.SetAttributes(AttrRequestModel.String(e.Model))
	}
	h.spans.Store(e.CallID, span)
}

// OnRetry records the failed attempt as a span event.
func (h *Hook) OnRetry(e core.RetryEvent) {
	v, ok := h.spans.Load(e.CallID)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int("anthropic.attempt", e.Attempt+1),
		AttrRetryDelay.Int64(e.Delay.Milliseconds()),
	}
	if e.Status != 0 {
		attrs = append(attrs, AttrStatus.Int(e.Status))
	}
	if e.Err != nil {
		attrs = append(attrs, attribute.String("error.message", e.Err.Error()))
	}
	v.(trace.Span).AddEvent("retry", trace.WithAttributes(attrs...))
}

// OnRequestEnd ends the call span.
func (h *Hook) OnRequestEnd(e core.RequestEndEvent) {
	v, ok := h.spans.LoadAndDelete(e.CallID)
	if !ok {
		return
	}
	span := v.(trace.Span)

	span.SetAttributes(AttrAttempts.Int(e.Attempts))
	if e.Status != 0 {
		span.SetAttributes(AttrStatus.Int(e.Status))
	}
	if u := e.Usage; u != (core.Usage{}) {
		span.SetAttributes(
			AttrInputTokens.Int(u.InputTokens),
			AttrOutputTokens.Int(u.OutputTokens),
			AttrCacheRead.Int(u.CacheReadInputTokens),
			AttrCacheWrite.Int(u.CacheCreationInputTokens),
		)
	}
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End(trace.WithTimestamp(e.End))
}
