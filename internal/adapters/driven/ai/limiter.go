package ai

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter throttles outbound calls to one provider.
// It combines a token bucket with a pause window opened by 429 responses.
type rateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// newRateLimiter returns nil when requestsPerSecond is not positive; a nil limiter never waits.
func newRateLimiter(requestsPerSecond float64) *rateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a request may be sent.
func (r *rateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}
	return r.limiter.Wait(ctx)
}

// Pause stops all callers until d has passed.
func (r *rateLimiter) Pause(d time.Duration) {
	if r == nil || d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if until := time.Now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}
