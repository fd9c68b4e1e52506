// Package resilience provides reliability primitives: a bounded-retry
// helper for agent bodies and a circuit breaker guarding writes to the
// configuration store.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls because
// the configuration store has been failing.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker shields the configuration store from write storms while it is
// unhealthy. After maxFailures consecutive failed writes it rejects calls
// for a cooldown period, then lets a single probe through: a successful
// probe closes the circuit, a failed one re-arms the cooldown.
//
// There is no explicit state machine; openness is derived from the
// failure count and the cooldown deadline.
type Breaker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration
	failures    int
	openUntil   time.Time
	probing     bool
	now         func() time.Time // for testing
}

// NewBreaker creates a breaker that opens after maxFailures consecutive
// failures and cools down for the given duration before probing.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Execute runs fn under circuit protection. While the circuit is open it
// returns ErrCircuitOpen without invoking fn; otherwise fn's error is
// returned as-is so callers can wrap it.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// admit decides whether a call may proceed. Only one probe is admitted at
// a time once the cooldown has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.maxFailures {
		return nil
	}
	if b.now().Before(b.openUntil) {
		return ErrCircuitOpen
	}
	if b.probing {
		return ErrCircuitOpen
	}
	b.probing = true
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	probe := b.probing
	b.probing = false

	if err == nil {
		b.failures = 0
		return
	}

	if probe {
		// The store is still down; cool down again without inflating
		// the failure count.
		b.openUntil = b.now().Add(b.cooldown)
		return
	}

	b.failures++
	if b.failures >= b.maxFailures {
		b.openUntil = b.now().Add(b.cooldown)
	}
}
