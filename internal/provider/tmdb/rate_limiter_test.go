package tmdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("AllowsRequestsWithinLimit", func(t *testing.T) {
		rl := newRateLimiter(5, 1*time.Second)

		// Should allow 5 requests immediately
		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := rl.wait(ctx); err != nil {
				t.Errorf("wait() request %d error = %v, want nil", i+1, err)
			}
		}
		elapsed := time.Since(start)

		if elapsed > 100*time.Millisecond {
			t.Errorf("5 requests under limit took %v, expected < 100ms", elapsed)
		}
	})

	t.Run("BlocksExcessRequests", func(t *testing.T) {
		rl := newRateLimiter(2, 300*time.Millisecond)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := rl.wait(ctx); err != nil {
				t.Errorf("wait() request %d error = %v, want nil", i+1, err)
			}
		}

		// 3rd request waits for the window
		if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
			t.Errorf("3rd request took %v, expected at least 300ms delay", elapsed)
		}
	})

	t.Run("HonorsContext", func(t *testing.T) {
		rl := newRateLimiter(1, 10*time.Second)
		if err := rl.wait(ctx); err != nil {
			t.Fatalf("wait() first request error = %v", err)
		}

		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := rl.wait(short)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("wait() error = %v, want context.DeadlineExceeded", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("wait() returned after %v, want prompt return on deadline", elapsed)
		}
	})

	t.Run("ConcurrentRequests", func(t *testing.T) {
		rl := newRateLimiter(10, 200*time.Millisecond)

		var wg sync.WaitGroup
		var mu sync.Mutex
		successCount := 0

		for i := 0; i < 15; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := rl.wait(ctx); err == nil {
					mu.Lock()
					successCount++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		// All requests succeed, the excess is only throttled
		if successCount != 15 {
			t.Errorf("Only %d concurrent requests succeeded, expected 15", successCount)
		}
	})

	t.Run("TMDBLimits", func(t *testing.T) {
		rl := newRateLimiter(38, 10*time.Second)
		now := time.Now()

		for i := 0; i < 38; i++ {
			if d := rl.reserve(now); d != 0 {
				t.Fatalf("reserve() request %d delay = %v, want 0", i+1, d)
			}
		}

		// 39th request waits until the first leaves the window
		d := rl.reserve(now.Add(time.Second))
		if d < 8*time.Second || d > 10*time.Second {
			t.Errorf("reserve() 39th delay = %v, want ~9s", d)
		}

		if d := rl.reserve(now.Add(10*time.Second + time.Millisecond)); d != 0 {
			t.Errorf("reserve() after window delay = %v, want 0", d)
		}
	})
}
