package notification

import (
	"context"
	"sync"
	"time"

	"github.com/gridsight/thermalwatch/internal/errors"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed means alerts flow normally.
	StateClosed CircuitState = iota
	// StateHalfOpen means one trial alert is allowed through.
	StateHalfOpen
	// StateOpen means alerts are rejected until the timeout elapses.
	StateOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker rejects alerts.
var ErrCircuitOpen = errors.Newf("circuit breaker is open").
	Component("notification").
	Category(errors.CategoryLimit).
	Build()

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening the circuit.
	MaxFailures int
	// Timeout is how long to wait before transitioning from Open to Half-Open.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns default circuit breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{MaxFailures: 5, Timeout: 30 * time.Second}
}

// CircuitBreaker stops alert delivery after repeated failures so a dead
// webhook does not slow every detection request.
type CircuitBreaker struct {
	config          CircuitBreakerConfig
	state           CircuitState
	failures        int
	lastStateChange time.Time
	halfOpenBusy    bool
	now             func() time.Time
	mu              sync.Mutex
}

// NewCircuitBreaker creates a closed CircuitBreaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures < 1 {
		config.MaxFailures = 1
	}
	return &CircuitBreaker{config: config, now: time.Now, lastStateChange: time.Now()}
}

// Call runs fn when the breaker allows it and records the outcome.
// Cancellation by the caller is not counted as a failure.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.afterCall(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.lastStateChange) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.halfOpenBusy = true
		return nil
	default:
		if cb.halfOpenBusy {
			return ErrCircuitOpen
		}
		cb.halfOpenBusy = true
		return nil
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.halfOpenBusy = false
	if err == nil {
		cb.failures = 0
		if cb.state != StateClosed {
			cb.setState(StateClosed)
		}
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	cb.lastStateChange = cb.now()
}
