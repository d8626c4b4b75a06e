package tools

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// ToolCallFunc is the function signature for tool execution.
// Middleware wraps this function to add behavior.
type ToolCallFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Middleware wraps a ToolCallFunc to add behavior before and/or after execution.
type Middleware func(next ToolCallFunc) ToolCallFunc

// ToolContext describes the current tool call to middleware.
type ToolContext struct {
	// ToolName is the name of the tool being called.
	ToolName string

	// CallID is the id of the tool_use block being answered.
	CallID string

	// Turn is the runner turn that produced the call, starting at 1.
	Turn int

	// Schema is the input schema of the tool.
	Schema json.RawMessage

	// Metadata allows middleware to share data with each other.
	Metadata map[string]any
}

type toolContextKey struct{}

// ContextWithToolContext adds ToolContext to a context.
func ContextWithToolContext(ctx context.Context, tc *ToolContext) context.Context {
	return context.WithValue(ctx, toolContextKey{}, tc)
}

// ToolContextFromContext retrieves ToolContext from a context.
// Returns nil if not present.
func ToolContextFromContext(ctx context.Context) *ToolContext {
	tc, _ := ctx.Value(toolContextKey{}).(*ToolContext)
	return tc
}

func toolName(ctx context.Context) string {
	if tc := ToolContextFromContext(ctx); tc != nil && tc.ToolName != "" {
		return tc.ToolName
	}
	return "unknown"
}

// Chain combines multiple middleware into a single middleware.
// The first middleware is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// ApplyMiddleware returns a tool that runs middlewares around tool.
func ApplyMiddleware(tool Tool, middlewares ...Middleware) Tool {
	if len(middlewares) == 0 {
		return tool
	}
	return &wrappedTool{
		tool:    tool,
		wrapped: Chain(middlewares...)(tool.Call),
	}
}

type wrappedTool struct {
	tool    Tool
	wrapped ToolCallFunc
}

func (w *wrappedTool) Name() string        { return w.tool.Name() }
func (w *wrappedTool) Description() string { return w.tool.Description() }
func (w *wrappedTool) Schema() ToolSchema  { return w.tool.Schema() }

func (w *wrappedTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	tc := ToolContextFromContext(ctx)
	if tc == nil {
		tc = &ToolContext{Metadata: make(map[string]any)}
		ctx = ContextWithToolContext(ctx, tc)
	}
	if tc.ToolName == "" {
		tc.ToolName = w.tool.Name()
	}
	if tc.Schema == nil {
		tc.Schema = w.tool.Schema().JSONSchema
	}
	return w.wrapped(ctx, args)
}

// PanicError is returned by WithPanicRecovery when a tool panics.
type PanicError struct {
	Tool  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("tool %s panicked: %v", e.Tool, e.Value)
}

// WithPanicRecovery turns a panic inside the tool into a *PanicError.
func WithPanicRecovery() Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (result any, err error) {
			defer func() {
				if v := recover(); v != nil {
					result = nil
					err = &PanicError{Tool: toolName(ctx), Value: v, Stack: debug.Stack()}
				}
			}()
			return next(ctx, args)
		}
	}
}
