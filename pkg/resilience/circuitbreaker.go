package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // Normal — calls pass through
	StateOpen                         // Tripped — calls are rejected
	StateHalfOpen                     // Probing — one call allowed
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds configuration for a CircuitBreaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           // Consecutive failures before tripping
	Cooldown         time.Duration // Wait before allowing a probe call
}

// CircuitBreaker trips open after a run of consecutive failures and lets
// a single probe through once the cooldown has elapsed. It protects the
// whole batch from hammering a service that is hard down.
type CircuitBreaker struct {
	mu sync.Mutex

	state       CircuitState
	threshold   int
	cooldown    time.Duration
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		state:     StateClosed,
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
	}
}

// Execute runs fn through the breaker. It returns ErrCircuitOpen without
// calling fn when the circuit is open and the cooldown has not elapsed.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.threshold {
			cb.state = StateOpen
		}
		return err
	}

	cb.failures = 0
	cb.state = StateClosed
	return nil
}

// State returns the current breaker state, accounting for an elapsed
// cooldown.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.cooldown {
		return StateHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(cb.lastFailure) > cb.cooldown {
			cb.state = StateHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}
