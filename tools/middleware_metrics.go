package tools

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// MetricsCollector receives tool execution metrics.
type MetricsCollector interface {
	// RecordCall records a tool call with its outcome.
	RecordCall(toolName string, duration time.Duration, err error)
}

// WithMetrics records the duration and outcome of every call.
func WithMetrics(collector MetricsCollector) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			start := time.Now()
			result, err := next(ctx, args)
			collector.RecordCall(toolName(ctx), time.Since(start), err)
			return result, err
		}
	}
}

// PrometheusCollector exports tool metrics to Prometheus.
type PrometheusCollector struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusCollector registers the tool metrics with reg. A nil reg uses
// the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusCollector{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anthropic_tool_calls_total",
			Help: "Total number of tool calls",
		}, []string{"tool", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anthropic_tool_call_duration_seconds",
			Help:    "Tool call duration in seconds",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"tool"}),
	}
}

// RecordCall implements MetricsCollector.
func (c *PrometheusCollector) RecordCall(toolName string, duration time.Duration, err error) {
	c.calls.WithLabelValues(toolName, resultLabel(err)).Inc()
	c.duration.WithLabelValues(toolName).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidArguments):
		return "invalid_arguments"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	}
	return "error"
}
