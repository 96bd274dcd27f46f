package engine

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is the availability state of a protected endpoint.
type BreakerState int

const (
	// BreakerClosed passes all calls through.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects all calls without touching the transport.
	BreakerOpen

	// BreakerHalfOpen lets probe calls through to test recovery.
	BreakerHalfOpen
)

// String returns the state name for logs and the health surface.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a three-state circuit breaker for one logical endpoint.
//
// The Open to HalfOpen transition is evaluated lazily at call time: there is
// no background timer, the breaker is purely a function of its counters and
// timestamps. Callers check Allow before each attempt and report the outcome
// exactly once via RecordSuccess or RecordFailure.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration

	state                BreakerState
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time

	// Clock overrides the time source for tests.
	Clock func() time.Time
}

// NewBreaker validates the breaker configuration and returns a closed breaker.
func NewBreaker(failureThreshold, successThreshold int, recoveryTimeout time.Duration) (*Breaker, error) {
	if failureThreshold < 1 {
		return nil, fmt.Errorf("failure threshold must be at least 1, got %d", failureThreshold)
	}
	if successThreshold < 1 {
		return nil, fmt.Errorf("success threshold must be at least 1, got %d", successThreshold)
	}
	if recoveryTimeout <= 0 {
		return nil, fmt.Errorf("recovery timeout must be positive, got %v", recoveryTimeout)
	}

	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            BreakerClosed,
	}, nil
}

// Allow reports whether a call may proceed. It does not mutate state.
func (b *Breaker) Allow() bool {
	return b.State() != BreakerOpen
}

// State returns the effective state, accounting for an expired recovery
// timeout while Open.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.effectiveStateLocked(b.now())
}

// RecordSuccess reports one successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.settleLocked(b.now())

	switch b.state {
	case BreakerClosed:
		b.consecutiveFailures = 0
	case BreakerHalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.successThreshold {
			b.state = BreakerClosed
			b.consecutiveFailures = 0
			b.consecutiveSuccesses = 0
		}
	}
}

// RecordFailure reports one failed call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.settleLocked(now)

	switch b.state {
	case BreakerClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.state = BreakerOpen
			b.openedAt = now
			b.consecutiveFailures = 0
		}
	case BreakerHalfOpen:
		// Any failure while probing reopens the circuit.
		b.state = BreakerOpen
		b.openedAt = now
		b.consecutiveSuccesses = 0
	}
}

// effectiveStateLocked derives the state a caller observes without mutating.
func (b *Breaker) effectiveStateLocked(now time.Time) BreakerState {
	if b.state == BreakerOpen && now.Sub(b.openedAt) >= b.recoveryTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

// settleLocked materializes the lazy Open to HalfOpen transition before a
// counter update.
func (b *Breaker) settleLocked(now time.Time) {
	if b.state == BreakerOpen && now.Sub(b.openedAt) >= b.recoveryTimeout {
		b.state = BreakerHalfOpen
		b.consecutiveSuccesses = 0
	}
}

func (b *Breaker) now() time.Time {
	if b != nil && b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}
