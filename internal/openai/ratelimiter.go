package openai

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements token bucket rate limiting for model API calls,
// with a per-minute and a per-day bucket.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerDay    int

	minuteTokens     int
	minuteLastRefill time.Time

	dayTokens     int
	dayLastRefill time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerMinute, requestsPerDay int) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerDay:    requestsPerDay,
		minuteTokens:      requestsPerMinute,
		minuteLastRefill:  now,
		dayTokens:         requestsPerDay,
		dayLastRefill:     now,
	}
}

// Wait blocks until a request can be made according to rate limits
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait, ok := rl.tryConsume()
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tryConsume refills the buckets, then either consumes one token from each
// or reports how long to wait before the next attempt.
func (rl *RateLimiter) tryConsume() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.minuteLastRefill) >= time.Minute {
		rl.minuteTokens = rl.requestsPerMinute
		rl.minuteLastRefill = now
	}
	if now.Sub(rl.dayLastRefill) >= 24*time.Hour {
		rl.dayTokens = rl.requestsPerDay
		rl.dayLastRefill = now
	}

	if rl.minuteTokens > 0 && rl.dayTokens > 0 {
		rl.minuteTokens--
		rl.dayTokens--
		return 0, true
	}

	var wait time.Duration
	if rl.minuteTokens <= 0 {
		wait = time.Minute - now.Sub(rl.minuteLastRefill)
	}
	if rl.dayTokens <= 0 {
		if dayWait := 24*time.Hour - now.Sub(rl.dayLastRefill); dayWait > wait {
			wait = dayWait
		}
	}
	if wait <= 0 {
		wait = time.Millisecond
	}

	return wait, false
}

// Remaining returns the tokens left in the minute and day buckets
func (rl *RateLimiter) Remaining() (minuteTokens, dayTokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.minuteTokens, rl.dayTokens
}
