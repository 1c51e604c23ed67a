// Package circuit provides a consecutive-failure circuit breaker used to
// guard calls to external dependencies (content store, storage backend).
//
// The breaker opens after a configurable number of consecutive failures and
// stays open for a cooldown period. Once the cooldown expires the next call
// is allowed through as a trial; its outcome decides whether the circuit
// closes or the failure count starts building again.
package circuit

import (
	"sync"
	"time"
)

// State is the current position of the breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Breaker tracks consecutive failures for one named dependency.
type Breaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	cooldown         time.Duration

	failures  int
	open      bool
	openUntil time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithCooldown sets how long the circuit stays open before probing again.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// New creates a closed breaker with a 5-failure / 30-second default.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		cooldown:         30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case !b.open:
		return StateClosed
	case time.Now().After(b.openUntil):
		return StateHalfOpen
	default:
		return StateOpen
	}
}

// IsOpen reports whether the circuit is open, regardless of cooldown.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Allow reports whether the caller may contact the dependency. While the
// cooldown runs it returns false; after expiry the circuit drops to a clean
// closed state and the call goes through as the trial.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if time.Now().After(b.openUntil) {
		b.open = false
		b.failures = 0
		return true
	}
	return false
}

// RecordSuccess records a successful call, closing the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure records a failed call. It returns true when this call
// tripped the circuit open.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.failureThreshold && !b.open {
		b.open = true
		b.openUntil = time.Now().Add(b.cooldown)
		return true
	}
	if b.open {
		// Failures while already open push the cooldown out.
		b.openUntil = time.Now().Add(b.cooldown)
	}
	return false
}

// Reset manually closes the circuit and clears the failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failures = 0
}
