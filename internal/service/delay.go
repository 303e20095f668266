package service

import (
	"context"
	"math/rand"
	"time"
)

// DelayRange is a closed interval of simulated latency
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Pick returns a uniformly random duration within the range
func (r DelayRange) Pick() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rand.Int63n(int64(r.Max-r.Min)+1))
}

// Sleep waits for a random duration within r, returning early with the
// context error if ctx is done first.
func Sleep(ctx context.Context, r DelayRange) (time.Duration, error) {
	d := r.Pick()
	if d <= 0 {
		return 0, ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return d, ctx.Err()
	case <-timer.C:
		return d, nil
	}
}
