package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreaker guards calls to a flaky collaborator (the realtime
// publisher). It trips open after a run of consecutive failures and
// allows a single probe once the cooldown has elapsed.
type CircuitBreaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

var ErrBreakerOpen = errors.New("circuit breaker is open")

func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:        name,
		maxFailures: 5,
		cooldown:    30 * time.Second,
		state:       BreakerClosed,
	}
}

func (cb *CircuitBreaker) Execute(req func() (any, error)) (any, error) {
	if err := cb.beforeRequest(); err != nil {
		return nil, err
	}

	result, err := req()
	cb.afterRequest(err == nil)
	return result, err
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen {
		if time.Since(cb.openedAt) < cb.cooldown {
			return fmt.Errorf("%w: %s", ErrBreakerOpen, cb.name)
		}
		// Cooldown elapsed, let one probe through.
		cb.state = BreakerHalfOpen
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.failures = 0
		cb.state = BreakerClosed
		return
	}

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = BreakerOpen
		cb.openedAt = time.Now()
	}
}
