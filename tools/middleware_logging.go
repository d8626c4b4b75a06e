package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// WithLogging logs the outcome and duration of every tool call.
func WithLogging(logger *slog.Logger) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			attrs := callAttrs(ctx)
			logger.DebugContext(ctx, "tool call start", attrs...)
			start := time.Now()

			result, err := next(ctx, args)

			attrs = append(attrs, "duration", time.Since(start))
			if err != nil {
				logger.WarnContext(ctx, "tool call failed", append(attrs, "error", err)...)
			} else {
				logger.InfoContext(ctx, "tool call succeeded", attrs...)
			}
			return result, err
		}
	}
}

// WithDetailedLogging also logs arguments and results at debug level.
// It may log sensitive data.
func WithDetailedLogging(logger *slog.Logger) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			attrs := callAttrs(ctx)
			logger.DebugContext(ctx, "tool call", append(attrs, "args", string(args))...)
			start := time.Now()

			result, err := next(ctx, args)

			attrs = append(attrs, "duration", time.Since(start))
			if err != nil {
				logger.DebugContext(ctx, "tool error", append(attrs, "error", err)...)
			} else {
				out, _ := json.Marshal(result)
				logger.DebugContext(ctx, "tool result", append(attrs, "result", string(out))...)
			}
			return result, err
		}
	}
}

func callAttrs(ctx context.Context) []any {
	attrs := []any{"tool", toolName(ctx)}
	if tc := ToolContextFromContext(ctx); tc != nil && tc.CallID != "" {
		attrs = append(attrs, "call_id", tc.CallID)
	}
	return attrs
}
