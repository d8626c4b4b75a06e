package tools

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// RateLimiter blocks until a call may proceed. *rate.Limiter satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// WithRateLimit limits tool calls to ratePerSecond with a burst of twice the
// rate.
func WithRateLimit(ratePerSecond float64) Middleware {
	burst := max(1, int(math.Ceil(ratePerSecond*2)))
	return WithRateLimiter(rate.NewLimiter(rate.Limit(ratePerSecond), burst))
}

// WithRateLimiter creates middleware using a custom rate limiter.
func WithRateLimiter(limiter RateLimiter) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
			return next(ctx, args)
		}
	}
}
