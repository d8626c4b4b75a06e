package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Handler sends a request and returns the raw response. The innermost
// handler performs the HTTP round trip; a non-2xx status is not an error at
// this level so middleware can inspect it.
type Handler func(ctx context.Context, req *Request) (*http.Response, error)

// Middleware wraps request execution. It may mutate req before calling next,
// inspect or replace the response after, or answer without calling next.
//
// The chain runs once per attempt on a fresh copy of the request, so a
// middleware must be idempotent across retries.
type Middleware interface {
	Handle(ctx context.Context, req *Request, next Handler) (*http.Response, error)
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(ctx context.Context, req *Request, next Handler) (*http.Response, error)

// Handle calls f.
func (f MiddlewareFunc) Handle(ctx context.Context, req *Request, next Handler) (*http.Response, error) {
	return f(ctx, req, next)
}

// Named is implemented by middleware that want a readable name in errors.
type Named interface {
	Name() string
}

// Chain composes middleware around final. The first middleware is the
// outermost: its pre-phase runs first and its post-phase runs last.
func Chain(final Handler, mws ...Middleware) Handler {
	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		h = wrap(mws[i], h)
	}
	return h
}

// wrap separates errors a middleware raises itself from errors that come
// back through next. Only the former become MiddlewareError.
func wrap(mw Middleware, next Handler) Handler {
	name := middlewareName(mw)
	return func(ctx context.Context, req *Request) (*http.Response, error) {
		var inner error
		tracked := func(ctx context.Context, req *Request) (*http.Response, error) {
			resp, err := next(ctx, req)
			inner = err
			return resp, err
		}

		resp, err := mw.Handle(ctx, req, tracked)
		if err != nil {
			if inner != nil && errors.Is(err, inner) {
				return nil, err
			}
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil, err
			}
			var mwErr *MiddlewareError
			if errors.As(err, &mwErr) {
				return nil, err
			}
			return nil, &MiddlewareError{Middleware: name, Err: err}
		}
		if resp == nil {
			return nil, &MiddlewareError{Middleware: name, Err: errors.New("returned no response")}
		}
		return resp, nil
	}
}

func middlewareName(mw Middleware) string {
	if n, ok := mw.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", mw)
}
