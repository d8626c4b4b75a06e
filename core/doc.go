// Package core is the request engine shared by every backend of the SDK.
//
// A call travels through four stages:
//
//	Request → middleware chain (pre) → HTTP send → middleware chain (post) → classification
//
// and the [Client] repeats that pipeline under a [RetryPolicy] until an
// attempt succeeds or the policy gives up.
//
// # Client
//
// [Client] owns the HTTP client, the middleware, the retry policy, the
// per-attempt timeout, a [slog.Logger] and a [TelemetryHook]:
//
//	c := core.NewClient(
//	    core.WithMiddleware(authHeaders),
//	    core.WithRetryPolicy(core.DefaultRetryPolicy()),
//	    core.WithTimeout(2*time.Minute),
//	)
//	var out map[string]any
//	err := c.Do(ctx, req, &out)
//
// [Client.Do] buffers and decodes a JSON body. [Client.Stream] returns the
// open response for incremental consumption; once it has returned, the call
// is never retried.
//
// # Middleware
//
// [Middleware] values are composed with [Chain]. The first middleware
// registered is the outermost. Each attempt runs the chain on a fresh clone
// of the [Request], so middleware must tolerate running more than once per
// call. Errors raised by a middleware itself are reported as
// [MiddlewareError] and are not retried.
//
// # Retry
//
// The default policy retries transport failures and API errors with status
// 408, 409, 429 and 5xx up to two times, with full-jitter exponential backoff
// starting at 500ms and capped at 8s. The retry-after-ms and retry-after
// headers replace the computed backoff for one attempt, and x-should-retry
// overrides the status decision.
//
// # Errors
//
// Every failure matches one of [ErrTransport], [ErrSerialization],
// [ErrStreamProtocol], [ErrRetriesExhausted], [ErrMiddleware] or is an
// [*APIError], which in turn unwraps to a classification sentinel such as
// [ErrRateLimited]:
//
//	var apiErr *core.APIError
//	if errors.As(err, &apiErr) {
//	    log.Printf("status=%d type=%s", apiErr.Status, apiErr.Type)
//	}
//	if errors.Is(err, core.ErrRateLimited) {
//	    // back off
//	}
//
// # Secrets
//
// [Secret] keeps credentials out of logs and serialized output.
package core
