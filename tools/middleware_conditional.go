package tools

import (
	"context"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// When applies middleware only to calls for which pred returns true. pred
// receives nil when the call carries no ToolContext.
func When(pred func(tc *ToolContext) bool, middleware Middleware) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		wrapped := middleware(next)
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if pred(ToolContextFromContext(ctx)) {
				return wrapped(ctx, args)
			}
			return next(ctx, args)
		}
	}
}

// ForTools applies middleware only to tools with the specified names.
func ForTools(toolNames []string, middleware Middleware) Middleware {
	names := toSet(toolNames)
	return When(func(tc *ToolContext) bool {
		return tc != nil && names[tc.ToolName]
	}, middleware)
}

// ExceptTools applies middleware to all tools except those with the specified names.
func ExceptTools(toolNames []string, middleware Middleware) Middleware {
	names := toSet(toolNames)
	return When(func(tc *ToolContext) bool {
		return tc == nil || !names[tc.ToolName]
	}, middleware)
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
