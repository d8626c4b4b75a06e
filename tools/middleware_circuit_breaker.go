package tools

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation.
	CircuitOpen                         // Failing, reject calls.
	CircuitHalfOpen                     // Testing if recovered.
)

// String returns the string representation of a CircuitState.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	FailureThreshold int           // Failures before opening.
	SuccessThreshold int           // Successes in half-open to close.
	OpenDuration     time.Duration // How long to stay open.
}

// DefaultCircuitBreakerConfig returns sensible circuit breaker defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenDuration:     30 * time.Second,
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open: too many failures")

// CircuitBreaker stops calling a tool after repeated failures. Model
// mistakes such as invalid arguments count as failures too, so a breaker is
// best placed inside validation middleware.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{config: config, now: time.Now}
}

// State returns the current state, moving from open to half-open once the
// open duration has elapsed.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *CircuitBreaker) stateLocked() CircuitState {
	if b.state == CircuitOpen && b.now().Sub(b.lastFailure) > b.config.OpenDuration {
		b.state = CircuitHalfOpen
		b.successes = 0
	}
	return b.state
}

func (b *CircuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == CircuitHalfOpen || b.failures >= b.config.FailureThreshold {
			b.state = CircuitOpen
		}
		return
	}

	if b.state == CircuitHalfOpen {
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = CircuitClosed
			b.failures = 0
		}
		return
	}
	b.failures = 0
}

// Middleware returns middleware guarded by b.
func (b *CircuitBreaker) Middleware() Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			b.mu.Lock()
			open := b.stateLocked() == CircuitOpen
			b.mu.Unlock()
			if open {
				return nil, ErrCircuitOpen
			}

			result, err := next(ctx, args)
			b.record(err)
			if err != nil {
				return nil, err
			}
			return result, nil
		}
	}
}

// WithCircuitBreaker creates middleware guarded by a new CircuitBreaker.
func WithCircuitBreaker(config CircuitBreakerConfig) Middleware {
	return NewCircuitBreaker(config).Middleware()
}
