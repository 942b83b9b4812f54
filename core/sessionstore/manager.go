package sessionstore

import (
	"context"
	"time"

	"github.com/dmitrymomot/sessionkit/core/lock"
)

// Manager combines a Store with a lock Coordinator to offer operations that
// hold the session's lock across the whole read-modify-write sequence. It is
// thin and mechanical: the store and the coordinator never call each other,
// they are composed here.
type Manager[Data any] struct {
	store Store[Data]
	locks lock.Coordinator

	lockTTL   time.Duration
	lockWait  time.Duration
	lockRetry time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerSettings)

type managerSettings struct {
	lockTTL   time.Duration
	lockWait  time.Duration
	lockRetry time.Duration
}

// WithLockTTL sets how long a per-operation lock is held at most.
func WithLockTTL(ttl time.Duration) ManagerOption {
	return func(s *managerSettings) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLockWait sets how long a locked operation waits for contended locks.
func WithLockWait(wait time.Duration) ManagerOption {
	return func(s *managerSettings) {
		if wait > 0 {
			s.lockWait = wait
		}
	}
}

// WithLockRetry sets the delay between lock acquisition attempts.
func WithLockRetry(retry time.Duration) ManagerOption {
	return func(s *managerSettings) {
		if retry > 0 {
			s.lockRetry = retry
		}
	}
}

// NewManager creates a manager over the given store and lock coordinator.
func NewManager[Data any](store Store[Data], locks lock.Coordinator, opts ...ManagerOption) *Manager[Data] {
	s := managerSettings{
		lockTTL:   10 * time.Second,
		lockWait:  5 * time.Second,
		lockRetry: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Manager[Data]{
		store:     store,
		locks:     locks,
		lockTTL:   s.lockTTL,
		lockWait:  s.lockWait,
		lockRetry: s.lockRetry,
	}
}

// Store returns the underlying session store.
func (m *Manager[Data]) Store() Store[Data] { return m.store }

// GetLocked fetches the regular record while holding its lock.
func (m *Manager[Data]) GetLocked(ctx context.Context, key string) (*Session[Data], error) {
	handle, err := m.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer handle.Release(ctx)
	return m.store.Get(ctx, key)
}

// UpdateLocked applies mutate to the current payload and persists the result,
// holding the session's lock across the whole read-modify-write sequence.
func (m *Manager[Data]) UpdateLocked(ctx context.Context, key string, mutate func(Data) (Data, error)) (*Session[Data], error) {
	handle, err := m.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer handle.Release(ctx)

	sess, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := mutate(sess.Data)
	if err != nil {
		return nil, err
	}
	sess.Data = data
	return m.store.Update(ctx, sess)
}

// EvictLocked moves the session to the evicted slot while holding its lock.
func (m *Manager[Data]) EvictLocked(ctx context.Context, key string, opt Options) (*Session[Data], error) {
	handle, err := m.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer handle.Release(ctx)
	return m.store.Evict(ctx, key, opt)
}

// RestoreLocked moves the session back to the regular slot while holding its
// lock.
func (m *Manager[Data]) RestoreLocked(ctx context.Context, key string, opt Options) (*Session[Data], error) {
	handle, err := m.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer handle.Release(ctx)
	return m.store.Restore(ctx, key, opt)
}

func (m *Manager[Data]) acquire(ctx context.Context, key string) (*lock.Handle, error) {
	resource := LockResource(m.store.Kind(), key)
	return m.locks.AcquireWait(ctx, resource, m.lockTTL, m.lockWait, m.lockRetry)
}
