package lock

import "errors"

var (
	// ErrNotAcquired is returned when an acquisition attempt (including an
	// exhausted wait/retry loop) did not obtain the lock. The accompanying
	// Handle carries the terminal status reached.
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrReleaseFailed is returned when the backing store rejected a release
	// of a lock the handle believes it still owns.
	ErrReleaseFailed = errors.New("failed to release lock")
)
