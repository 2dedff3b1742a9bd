package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a request
// without calling the backend.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed allows all requests to pass through normally.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects all requests until the cooldown expires.
	StateOpen

	// StateHalfOpen lets a single probe request through to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after maxFailures consecutive failures and rejects
// calls for cooldownDuration. After the cooldown one probe call is let
// through; its outcome closes or reopens the circuit.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
	now              func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. maxFailures below one
// is treated as one.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      max(maxFailures, 1),
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// Call runs fn unless the circuit is open, in which case it returns
// ErrCircuitOpen. The lock is not held while fn runs.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldownDuration {
			return ErrCircuitOpen
		}
		// This caller becomes the probe; others are rejected until it
		// reports back.
		cb.state = StateHalfOpen
		return nil
	case StateHalfOpen:
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failureCount = 0
		cb.state = StateClosed
		return
	}
	cb.failureCount++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// circuitBreakerBackend guards a backend with a CircuitBreaker.
type circuitBreakerBackend struct {
	next    ports.EvaluatorBackend
	cb      *CircuitBreaker
	metrics ports.MetricsCollector
}

// CircuitBreakerMiddleware creates middleware that stops calling a failing
// backend. Each call of the returned middleware gets its own breaker, so
// evaluators registered separately fail independently. A non-nil metrics
// collector receives the state after every call.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration, metrics ports.MetricsCollector) ports.BackendMiddleware {
	return func(next ports.EvaluatorBackend) ports.EvaluatorBackend {
		return &circuitBreakerBackend{
			next:    next,
			cb:      NewCircuitBreaker(maxFailures, cooldown),
			metrics: metrics,
		}
	}
}

// Evaluate executes the call through the circuit breaker.
func (c *circuitBreakerBackend) Evaluate(
	ctx context.Context,
	entry domain.Entry,
	settings domain.ResolvedSettings,
) (domain.EvaluationResult, error) {
	var result domain.EvaluationResult
	err := c.cb.Call(func() error {
		var err error
		result, err = c.next.Evaluate(ctx, entry, settings)
		return err
	})

	if c.metrics != nil {
		c.metrics.RecordGauge(ports.MetricCircuitState, float64(c.cb.State()),
			map[string]string{"evaluator": settings.EvaluatorID})
	}
	return result, err
}
