package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	Retryable   func(error) bool // Nil retries every error.
}

// DefaultRetryConfig retries timeouts up to three attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
		Retryable: func(err error) bool {
			var temp interface{ Temporary() bool }
			return errors.Is(err, ErrTimeout) ||
				errors.Is(err, context.DeadlineExceeded) ||
				(errors.As(err, &temp) && temp.Temporary())
		},
	}
}

// WithRetry retries failed tool calls with exponential backoff.
func WithRetry(config RetryConfig) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = config.InitialWait
			b.MaxInterval = config.MaxWait
			b.Multiplier = config.Multiplier
			b.MaxElapsedTime = 0
			retries := uint64(max(config.MaxAttempts-1, 0))
			policy := backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)

			var result any
			attempts := 0
			err := backoff.Retry(func() error {
				attempts++
				v, err := next(ctx, args)
				if err != nil {
					if config.Retryable != nil && !config.Retryable(err) {
						return backoff.Permanent(err)
					}
					return err
				}
				result = v
				return nil
			}, policy)

			switch {
			case err == nil:
				return result, nil
			case attempts <= 1 || ctx.Err() != nil:
				return nil, err
			}
			return nil, fmt.Errorf("tool call failed after %d attempts: %w", attempts, err)
		}
	}
}
