package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sessionkit/core/cache"
	"github.com/dmitrymomot/sessionkit/core/logger"
	"github.com/dmitrymomot/sessionkit/pkg/serialqueue"
)

// lockEntry is the cache value for a held lock. Carrying the handle lets the
// eviction callback flip its status without a registry lookup.
type lockEntry struct {
	token  string
	handle *Handle
}

// LocalCoordinator implements Coordinator for a single process, using the
// shared cache's insert-if-absent primitive as the mutual-exclusion point.
// Every cache access, including lock bookkeeping, runs through the shared
// serial queue (the same queue the in-process session store uses), so the
// cache never needs its own synchronization.
//
// The cache may expire a lock entry out from under its holder; the eviction
// callback flips the handle to the matching terminal status so the change is
// observable without the holder asking. A capacity eviction of a lock entry
// means the cache was constructed bounded, which is a wiring defect: lock
// entries must not be evictable by capacity, so that case panics.
type LocalCoordinator struct {
	queue  *serialqueue.Queue
	cache  *cache.TTLCache[string, any]
	logger *slog.Logger

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewLocalCoordinator creates an in-process lock coordinator over a shared
// queue and cache, registers the cache eviction callback, and starts the
// background sweeper that delivers timely expirations. Panics when the cache
// is capacity-bounded: lock entries must never be evictable by capacity, and
// a bounded cache is detectable at wiring time rather than under load.
func NewLocalCoordinator(queue *serialqueue.Queue, c *cache.TTLCache[string, any], opts ...Option) *LocalCoordinator {
	if c.Cap() > 0 {
		panic("lock: the lock cache must be unbounded; lock entries must never be evicted by capacity")
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	lc := &LocalCoordinator{
		queue:         queue,
		cache:         c,
		logger:        s.logger,
		sweepInterval: s.sweepInterval,
		stop:          make(chan struct{}),
	}

	c.SetEvictCallback(func(key string, v any, reason cache.EvictionReason) {
		entry, ok := v.(lockEntry)
		if !ok {
			return // session records share the cache; not ours
		}
		switch reason {
		case cache.ReasonExpired:
			entry.handle.markExpired()
		case cache.ReasonRemoved:
			entry.handle.markUnlocked()
		case cache.ReasonCapacity:
			panic(fmt.Sprintf("lock: entry %q evicted by capacity; the lock cache must be unbounded", key))
		}
	})

	lc.wg.Add(1)
	go lc.sweeper()
	return lc
}

// Acquire implements Coordinator.
func (c *LocalCoordinator) Acquire(ctx context.Context, resource string, ttl time.Duration) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	var handle *Handle
	err := c.queue.Do(ctx, func(context.Context) error {
		if _, held := c.cache.Get(resource); held {
			return ErrNotAcquired
		}
		handle = newAcquiredHandle(resource, token, time.Now().Add(ttl), c.releaser(resource, token))
		c.cache.Add(resource, lockEntry{token: token, handle: handle}, ttl)
		return nil
	})
	if errors.Is(err, ErrNotAcquired) {
		return newFailedHandle(resource, token, StatusConflicted), errors.Join(err, fmt.Errorf("resource %q is held", resource))
	}
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// AcquireWait implements Coordinator.
func (c *LocalCoordinator) AcquireWait(ctx context.Context, resource string, ttl, waitTime, retryTime time.Duration) (*Handle, error) {
	return acquireWait(ctx, c, resource, ttl, waitTime, retryTime)
}

// Close stops the background sweeper. Held locks remain valid until released
// or expired through their own watchers.
func (c *LocalCoordinator) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
	return nil
}

// releaser clears the cache entry if and only if it still belongs to this
// acquisition. A stale handle (expired, then re-acquired by someone else)
// must never delete the new holder's entry.
func (c *LocalCoordinator) releaser(resource, token string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return c.queue.Do(ctx, func(context.Context) error {
			v, ok := c.cache.Peek(resource)
			if !ok {
				return nil
			}
			entry, ok := v.(lockEntry)
			if !ok || entry.token != token {
				return nil
			}
			c.cache.Delete(resource)
			return nil
		})
	}
}

// sweeper periodically enqueues an expiry sweep so eviction callbacks fire
// close to the actual expiration rather than on the next access.
func (c *LocalCoordinator) sweeper() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if _, err := c.queue.Go(context.Background(), func(context.Context) error {
				if n := c.cache.Sweep(); n > 0 {
					c.logger.Debug("swept expired lock entries", logger.Count("count", n))
				}
				return nil
			}); err != nil {
				return // queue closed; nothing left to sweep
			}
		}
	}
}
