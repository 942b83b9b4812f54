package lock

import (
	"context"
	"sync"
	"time"
)

// Handle represents one lock acquisition attempt, successful or not. A
// successful handle owns the resource exclusively until released or expired;
// only the holder whose token matches may clear the backing entry.
//
// An acquired handle runs a background watcher that flips its status to
// StatusExpired when the expiry elapses without a release. Release cancels
// the watcher, so handles never leak timers.
type Handle struct {
	resource string
	token    string
	acquired bool

	mu        sync.Mutex
	status    Status
	expiresAt time.Time
	release   func(ctx context.Context) error

	watchDone chan struct{}
	watchOnce sync.Once
}

// newAcquiredHandle builds a handle for a successful acquisition and starts
// its expiry watcher. release clears the backing entry; it is invoked at
// most once, only while the handle still believes it owns the lock.
func newAcquiredHandle(resource, token string, expiresAt time.Time, release func(ctx context.Context) error) *Handle {
	h := &Handle{
		resource:  resource,
		token:     token,
		acquired:  true,
		status:    StatusAcquired,
		expiresAt: expiresAt,
		release:   release,
		watchDone: make(chan struct{}),
	}
	go h.watchExpiry()
	return h
}

// newFailedHandle builds a handle for a failed acquisition carrying the
// terminal status reached.
func newFailedHandle(resource, token string, status Status) *Handle {
	return &Handle{
		resource: resource,
		token:    token,
		status:   status,
	}
}

// Resource returns the lock's target name.
func (h *Handle) Resource() string { return h.resource }

// Token returns the per-attempt ownership token.
func (h *Handle) Token() string { return h.token }

// Acquired reports whether the acquisition attempt succeeded. It does not
// change when the handle later expires or is released; check Status for the
// current state.
func (h *Handle) Acquired() bool { return h.acquired }

// Status returns the handle's current status.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// ExpiresAt returns when the lock lapses unless released first. Zero for
// failed acquisitions.
func (h *Handle) ExpiresAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expiresAt
}

// Release clears the lock if this handle still owns it. It is idempotent
// and a no-op when the handle was never acquired, already released, or
// already expired; a handle must never clear a lock it no longer owns.
// The handle transitions to StatusUnlocked only after the backing confirms
// the release, so a failed release leaves it acquired and retryable.
func (h *Handle) Release(ctx context.Context) error {
	h.mu.Lock()
	if h.status != StatusAcquired {
		h.mu.Unlock()
		return nil
	}
	release := h.release
	h.mu.Unlock()

	if release != nil {
		if err := release(ctx); err != nil {
			return err
		}
	}

	h.mu.Lock()
	if h.status == StatusAcquired {
		h.status = StatusUnlocked
		h.release = nil
	}
	h.mu.Unlock()
	h.stopWatch()
	return nil
}

// markExpired flips an acquired handle to StatusExpired. Used by the expiry
// watcher and by cache eviction callbacks in the local backing; it never
// overrides an explicit release.
func (h *Handle) markExpired() {
	h.mu.Lock()
	if h.status == StatusAcquired {
		h.status = StatusExpired
		h.release = nil
	}
	h.mu.Unlock()
	h.stopWatch()
}

// markUnlocked records that the backing entry left the store through an
// explicit removal (e.g. the cache eviction callback observing a delete).
func (h *Handle) markUnlocked() {
	h.mu.Lock()
	if h.status == StatusAcquired {
		h.status = StatusUnlocked
		h.release = nil
	}
	h.mu.Unlock()
	h.stopWatch()
}

func (h *Handle) watchExpiry() {
	timer := time.NewTimer(time.Until(h.expiresAt))
	defer timer.Stop()
	select {
	case <-timer.C:
		h.markExpired()
	case <-h.watchDone:
	}
}

func (h *Handle) stopWatch() {
	if h.watchDone == nil {
		return
	}
	h.watchOnce.Do(func() { close(h.watchDone) })
}
