package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by every request one upstream client makes.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	capacity int
	every    time.Duration
	last     time.Time
}

// NewRateLimiter allows bursts of capacity calls and regains one token per every.
func NewRateLimiter(capacity int, every time.Duration) *RateLimiter {
	if capacity < 1 {
		capacity = 1
	}
	if every <= 0 {
		every = time.Millisecond
	}
	return &RateLimiter{
		tokens:   capacity,
		capacity: capacity,
		every:    every,
		last:     time.Now(),
	}
}

// NewPerMinuteLimiter spreads perMinute calls evenly over a minute.
func NewPerMinuteLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return NewRateLimiter(perMinute, time.Minute/time.Duration(perMinute))
}

// Wait blocks until a token is taken or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay, ok := r.take()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes a token, or reports how long until the next one.
func (r *RateLimiter) take() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if gained := int(now.Sub(r.last) / r.every); gained > 0 {
		r.tokens += gained
		if r.tokens > r.capacity {
			r.tokens = r.capacity
		}
		r.last = r.last.Add(time.Duration(gained) * r.every)
	}

	if r.tokens > 0 {
		r.tokens--
		return 0, true
	}
	return r.every - now.Sub(r.last), false
}
