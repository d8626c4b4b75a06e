package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// ErrTimeout is returned when a tool does not finish within its deadline.
var ErrTimeout = errors.New("tool execution timed out")

// TimeoutError reports which tool call ran out of time. It matches ErrTimeout.
type TimeoutError struct {
	Tool   string
	CallID string
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	if e.CallID != "" {
		return fmt.Sprintf("tool %s (%s): %v after %v", e.Tool, e.CallID, ErrTimeout, e.After)
	}
	return fmt.Sprintf("tool %s: %v after %v", e.Tool, ErrTimeout, e.After)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// WithTimeout bounds every tool call to d.
func WithTimeout(d time.Duration) Middleware {
	return WithToolTimeouts(d, nil)
}

// WithToolTimeouts bounds each call by the entry for its tool in perTool,
// falling back to def. A non-positive limit leaves the call unbounded. A tool
// that ignores ctx keeps running in the background, but its result is
// dropped and the runner reports the timeout to the model.
func WithToolTimeouts(def time.Duration, perTool map[string]time.Duration) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			name := toolName(ctx)
			d := def
			if v, ok := perTool[name]; ok {
				d = v
			}
			if d <= 0 {
				return next(ctx, args)
			}

			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type result struct {
				value any
				err   error
			}
			ch := make(chan result, 1)
			go func() {
				v, err := next(ctx, args)
				ch <- result{v, err}
			}()

			select {
			case r := <-ch:
				return r.value, r.err
			case <-ctx.Done():
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, ctx.Err()
				}
				te := &TimeoutError{Tool: name, After: d}
				if tc := ToolContextFromContext(ctx); tc != nil {
					te.CallID = tc.CallID
				}
				return nil, te
			}
		}
	}
}
