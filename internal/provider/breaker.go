package provider

import (
	"errors"
	"log"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling upstream while a breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Breaker states.
const (
	BreakerClosed   = "closed"
	BreakerOpen     = "open"
	BreakerHalfOpen = "half-open"
)

// CircuitBreaker stops calling an upstream after consecutive failures and
// lets a trial request through once the cooldown has elapsed. One breaker is
// created per upstream at startup and shared by its client.
type CircuitBreaker struct {
	mu        sync.Mutex
	name      string
	threshold int
	cooldown  time.Duration
	failures  int
	state     string
	openedAt  time.Time
	trial     bool
	now       func() time.Time
}

func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

// Allow returns ErrCircuitOpen while the breaker is open and within cooldown,
// and while a half-open trial request is still in flight. Every allowed call
// must end in Success, Failure or Skip.
func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.trial = true
		log.Printf("circuit %s half-open, allowing trial request", b.name)
	case BreakerHalfOpen:
		if b.trial {
			return ErrCircuitOpen
		}
		b.trial = true
	}
	return nil
}

// Skip ends an allowed call that never got an answer from upstream, such as
// one whose caller gave up. The failure count is left untouched.
func (b *CircuitBreaker) Skip() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
}

func (b *CircuitBreaker) Success() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerClosed {
		log.Printf("circuit %s closed", b.name)
	}
	b.failures = 0
	b.state = BreakerClosed
	b.trial = false
}

func (b *CircuitBreaker) Failure() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.trial = false
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		if b.state != BreakerOpen {
			log.Printf("circuit %s open after %d failures", b.name, b.failures)
		}
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State() string {
	if b == nil {
		return BreakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
