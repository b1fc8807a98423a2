package redis

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker position for result writes.
type State int

const (
	StateClosed   State = 0 // writes flow to Redis
	StateOpen     State = 1 // writes fail fast until the cooldown elapses
	StateHalfOpen State = 2 // one probe write decides open vs closed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned while the breaker is open and its cooldown
// has not yet elapsed. Callers buffer the write instead of retrying.
var ErrCircuitOpen = errors.New("redis: circuit open")

// CircuitBreaker fails result writes fast when Redis is down, instead of
// stalling the engine loop on timeouts. It trips after threshold
// consecutive failures, rejects everything for one cooldown, then lets a
// single probe through: a clean probe closes the breaker, a failed one
// starts the cooldown over.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	consecFails int
	threshold   int
	cooldown    time.Duration
	lastFail    time.Time

	// OnStateChange fires on every transition (optional, for metrics).
	OnStateChange func(from, to State)
}

// NewCircuitBreaker creates a closed breaker that trips after threshold
// consecutive failures and probes again after cooldown.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
	}
}

// Execute runs fn unless the breaker is open, in which case it returns
// ErrCircuitOpen without calling fn. fn runs outside the lock.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFail) <= cb.cooldown {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.consecFails++
		cb.lastFail = time.Now()
		// A failed probe reopens immediately, whatever the count.
		if cb.state == StateHalfOpen || cb.consecFails >= cb.threshold {
			cb.transition(StateOpen)
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
	cb.consecFails = 0
	return nil
}

// CurrentState returns the breaker position.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition must be called with cb.mu held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	if to == StateClosed {
		cb.consecFails = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
