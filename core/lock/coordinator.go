package lock

import (
	"context"
	"errors"
	"time"
)

// Coordinator acquires named distributed locks. The two backings (redsync
// and in-process) are interchangeable implementations of this contract,
// selected at composition time.
type Coordinator interface {
	// Acquire makes a single acquisition attempt. On contention it returns
	// a non-acquired Handle carrying the terminal status together with
	// ErrNotAcquired; only cancellation and infrastructure faults surface
	// as other errors.
	Acquire(ctx context.Context, resource string, ttl time.Duration) (*Handle, error)

	// AcquireWait retries failed attempts every retryTime until the lock is
	// acquired or waitTime has elapsed since the first attempt began. Every
	// sleep observes ctx. Ordinary contention never raises; the result shape
	// matches Acquire.
	AcquireWait(ctx context.Context, resource string, ttl, waitTime, retryTime time.Duration) (*Handle, error)
}

// acquireWait implements the bounded wait/retry loop shared by both
// backings on top of their single-attempt Acquire.
func acquireWait(ctx context.Context, c Coordinator, resource string, ttl, waitTime, retryTime time.Duration) (*Handle, error) {
	start := time.Now()
	for {
		handle, err := c.Acquire(ctx, resource, ttl)
		if err == nil || !errors.Is(err, ErrNotAcquired) {
			return handle, err
		}
		if time.Since(start)+retryTime > waitTime {
			return handle, err
		}

		timer := time.NewTimer(retryTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
