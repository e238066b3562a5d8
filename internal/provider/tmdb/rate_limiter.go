package tmdb

import (
	"context"
	"sync"
	"time"
)

// rateLimiter implements a simple sliding window rate limiter
type rateLimiter struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration
}

// newRateLimiter creates a new rate limiter
func newRateLimiter(maxRequests int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// wait blocks until a request fits in the window or ctx is done.
func (r *rateLimiter) wait(ctx context.Context) error {
	for {
		delay := r.reserve(time.Now())
		if delay <= 0 {
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

// reserve records a request at now and returns 0, or returns how long to
// wait before trying again.
func (r *rateLimiter) reserve(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)
	kept := r.requests[:0]
	for _, req := range r.requests {
		if req.After(cutoff) {
			kept = append(kept, req)
		}
	}
	r.requests = kept

	if len(r.requests) < r.maxRequests {
		r.requests = append(r.requests, now)
		return 0
	}

	// Small buffer so the oldest request has actually left the window
	return r.window - now.Sub(r.requests[0]) + 10*time.Millisecond
}
