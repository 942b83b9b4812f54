package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessionkit/core/logger"
)

// RedsyncCoordinator implements Coordinator on top of a Redlock-style
// coordination service. Each attempt acquires a single-try redsync mutex
// with a fresh uuid token, so release and extension are ownership-checked
// by the algorithm itself.
type RedsyncCoordinator struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger

	// The redsync instance is established lazily, at most once; the guard
	// covers establishment only, never use.
	once sync.Once
	rs   *redsync.Redsync
}

// NewRedsyncCoordinator creates a distributed lock coordinator over the
// given client.
func NewRedsyncCoordinator(client redis.UniversalClient, opts ...Option) *RedsyncCoordinator {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &RedsyncCoordinator{
		client: client,
		prefix: s.prefix,
		logger: s.logger,
	}
}

func (c *RedsyncCoordinator) redsync() *redsync.Redsync {
	c.once.Do(func() {
		c.rs = redsync.New(goredis.NewPool(c.client))
	})
	return c.rs
}

// Acquire implements Coordinator.
func (c *RedsyncCoordinator) Acquire(ctx context.Context, resource string, ttl time.Duration) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// WithGenValueFunc, not WithValue: redsync regenerates the mutex value
	// through the generator on every fresh acquisition, so only the
	// generator guarantees the stored value is this handle's token.
	token := uuid.NewString()
	mutex := c.redsync().NewMutex(c.prefix+resource,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
		redsync.WithGenValueFunc(func() (string, error) { return token, nil }),
	)

	if err := mutex.TryLockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		status := statusFromRedsyncError(err)
		c.logger.DebugContext(ctx, "lock attempt failed",
			logger.Resource(resource),
			slog.String("status", status.String()),
			logger.Error(err))
		return newFailedHandle(resource, token, status), errors.Join(ErrNotAcquired, err)
	}

	return newAcquiredHandle(resource, token, mutex.Until(), func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if err != nil {
			// A lock that expired, or expired and was re-acquired by a
			// new holder, already left our ownership; releasing it is a
			// no-op, not a failure.
			if errors.Is(err, redsync.ErrLockAlreadyExpired) || isTakenError(err) {
				return nil
			}
			return errors.Join(ErrReleaseFailed, err)
		}
		if !ok {
			return fmt.Errorf("%w: quorum not reached", ErrReleaseFailed)
		}
		return nil
	}), nil
}

// AcquireWait implements Coordinator.
func (c *RedsyncCoordinator) AcquireWait(ctx context.Context, resource string, ttl, waitTime, retryTime time.Duration) (*Handle, error) {
	return acquireWait(ctx, c, resource, ttl, waitTime, retryTime)
}

// statusFromRedsyncError translates redsync's status vocabulary: a lock held
// elsewhere is contention, anything else means the pool could not reach a
// quorum decision.
func statusFromRedsyncError(err error) Status {
	if isTakenError(err) {
		return StatusConflicted
	}
	return StatusNoQuorum
}

// isTakenError reports whether err means the lock is owned elsewhere.
func isTakenError(err error) bool {
	var taken *redsync.ErrTaken
	if errors.As(err, &taken) {
		return true
	}
	var nodeTaken *redsync.ErrNodeTaken
	return errors.As(err, &nodeTaken)
}
