package enhancement

import (
	"context"
	"sync"
	"time"
)

// rateLimiter enforces a minimum interval between requests to a single
// source, queueing callers rather than rejecting them — cross-source
// requests proceed in parallel, only same-source requests serialize (spec
// §4.9).
type rateLimiter struct {
	mu       sync.Mutex
	minGap   time.Duration
	lastCall time.Time
}

func newRateLimiter(minGap time.Duration) *rateLimiter {
	return &rateLimiter{minGap: minGap}
}

// wait blocks until minGap has elapsed since the previous caller was
// admitted, then reserves the slot for the caller. Returns ctx.Err() if the
// context is cancelled first.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	wait := r.minGap - now.Sub(r.lastCall)
	if wait <= 0 {
		r.lastCall = now
		r.mu.Unlock()
		return nil
	}
	r.lastCall = now.Add(wait)
	r.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
