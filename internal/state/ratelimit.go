package state

import (
	"context"
	"sync"
	"time"
)

const (
	rateLimitWindow       = time.Minute
	rateLimitPollInterval = 200 * time.Millisecond
)

// RateLimiter admits at most maxCalls calls in any sliding one-minute window.
// It is shared by every indexer call of the process.
type RateLimiter struct {
	mu       sync.RWMutex
	calls    []time.Time
	maxCalls int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(maxCallsPerMinute int) *RateLimiter {
	return &RateLimiter{
		maxCalls: maxCallsPerMinute,
		window:   rateLimitWindow,
		now:      time.Now,
	}
}

func (r *RateLimiter) RecordCall() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, r.now())
}

// CanCall prunes expired timestamps and reports whether another call fits in the window
func (r *RateLimiter) CanCall() bool {
	r.mu.RLock()
	cutoff := r.now().Add(-r.window)
	stale := len(r.calls) > 0 && !r.calls[0].After(cutoff)
	ok := len(r.calls) < r.maxCalls
	r.mu.RUnlock()
	if !stale {
		return ok
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	return len(r.calls) < r.maxCalls
}

// Wait blocks until a call is admitted, then records it
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.tryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rateLimitPollInterval):
		}
	}
}

// tryAcquire checks and records under one lock so concurrent waiters cannot overshoot
func (r *RateLimiter) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	if len(r.calls) >= r.maxCalls {
		return false
	}
	r.calls = append(r.calls, r.now())
	return true
}

// prune drops timestamps older than the window; callers hold the write lock
func (r *RateLimiter) prune() {
	cutoff := r.now().Add(-r.window)
	i := 0
	for i < len(r.calls) && !r.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.calls = append(r.calls[:0], r.calls[i:]...)
	}
}
