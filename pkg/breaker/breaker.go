// Package breaker guards calls to external services with per-name circuit
// breakers.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a breaker rejects a call without running it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

// Breaker tracks consecutive failures of one dependency. It opens when the
// threshold is reached and lets a single probe through once the cooldown
// since the last failure has elapsed.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	lastFailureAt time.Time
	probing       bool
}

func newBreaker(name string, threshold int, cooldown time.Duration, now func() time.Time) *Breaker {
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
	}
}

// Do runs fn unless the breaker is open. fn's error is always returned.
// A panic in fn counts as a failure and is re-raised.
func (b *Breaker) Do(fn func() error) (err error) {
	if err := b.acquire(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.record(fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err = fn()
	b.record(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if !b.now().After(b.lastFailureAt.Add(b.cooldown)) {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
		}
		b.state = HalfOpen
		b.probing = true
		return nil
	default: // HalfOpen
		if b.probing {
			return fmt.Errorf("%w: %s probe in flight", ErrCircuitOpen, b.name)
		}
		b.probing = true
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil {
		b.failures = 0
		b.state = Closed
		return
	}

	b.failures++
	b.lastFailureAt = b.now()
	if b.state == HalfOpen || b.failures >= b.threshold {
		b.state = Open
	}
}

// Stats is a point-in-time view of one breaker.
type Stats struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureAt       time.Time `json:"last_failure_at,omitempty"`
}

func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Name:                b.name,
		State:               b.state.String(),
		ConsecutiveFailures: b.failures,
		LastFailureAt:       b.lastFailureAt,
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
