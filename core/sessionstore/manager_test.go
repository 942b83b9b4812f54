package sessionstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/core/cache"
	"github.com/dmitrymomot/sessionkit/core/lock"
	"github.com/dmitrymomot/sessionkit/core/sessionstore"
	"github.com/dmitrymomot/sessionkit/pkg/serialqueue"
)

func newManager(t *testing.T) *sessionstore.Manager[gameState] {
	t.Helper()

	queue := serialqueue.New()
	t.Cleanup(func() { _ = queue.Close() })

	c := cache.New[string, any](0)
	locks := lock.NewLocalCoordinator(queue, c)
	t.Cleanup(func() { _ = locks.Close() })

	store := sessionstore.NewMemoryStore[gameState](queue, c, "game")
	return sessionstore.NewManager(store, locks)
}

func TestManager_UpdateLocked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("applies the mutation under the lock", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t)
		_, err := mgr.Store().Add(ctx, "u1", gameState{Score: 1}, sessionstore.Options{})
		require.NoError(t, err)

		sess, err := mgr.UpdateLocked(ctx, "u1", func(d gameState) (gameState, error) {
			d.Score++
			return d, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, sess.Data.Score)
		assert.Equal(t, int64(2), sess.Version)
	})

	t.Run("no increment is lost under contention", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t)
		_, err := mgr.Store().Add(ctx, "u1", gameState{}, sessionstore.Options{})
		require.NoError(t, err)

		const workers = 16
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := mgr.UpdateLocked(ctx, "u1", func(d gameState) (gameState, error) {
					d.Score++
					return d, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := mgr.Store().Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, workers, got.Data.Score)
		assert.Equal(t, int64(workers+1), got.Version)
	})

	t.Run("mutation error leaves the record untouched", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t)
		_, err := mgr.Store().Add(ctx, "u1", gameState{Score: 7}, sessionstore.Options{})
		require.NoError(t, err)

		wantErr := assert.AnError
		_, err = mgr.UpdateLocked(ctx, "u1", func(gameState) (gameState, error) {
			return gameState{}, wantErr
		})
		require.ErrorIs(t, err, wantErr)

		got, err := mgr.Store().Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 7, got.Data.Score)
		assert.Equal(t, int64(1), got.Version)
	})
}

func TestManager_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mgr := newManager(t)

	_, err := mgr.Store().Add(ctx, "u1", gameState{Name: "alice"}, sessionstore.Options{})
	require.NoError(t, err)

	got, err := mgr.GetLocked(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Data.Name)

	evicted, err := mgr.EvictLocked(ctx, "u1", sessionstore.Options{})
	require.NoError(t, err)
	assert.Equal(t, "alice", evicted.Data.Name)

	_, err = mgr.GetLocked(ctx, "u1")
	assert.ErrorIs(t, err, sessionstore.ErrSessionFinished)

	restored, err := mgr.RestoreLocked(ctx, "u1", sessionstore.Options{})
	require.NoError(t, err)
	assert.Equal(t, "alice", restored.Data.Name)
}

func TestManager_LockContention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	queue := serialqueue.New()
	t.Cleanup(func() { _ = queue.Close() })
	c := cache.New[string, any](0)
	locks := lock.NewLocalCoordinator(queue, c)
	t.Cleanup(func() { _ = locks.Close() })
	store := sessionstore.NewMemoryStore[gameState](queue, c, "game")

	// Tight wait budget so a held lock surfaces as an acquisition failure
	// instead of stalling the test.
	mgr := sessionstore.NewManager(store, locks,
		sessionstore.WithLockWait(50*time.Millisecond),
		sessionstore.WithLockRetry(10*time.Millisecond),
	)

	_, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{})
	require.NoError(t, err)

	// Hold the session's lock out-of-band; locked operations must not
	// proceed while it is held.
	handle, err := locks.Acquire(ctx, sessionstore.LockResource("game", "u1"), time.Minute)
	require.NoError(t, err)

	_, err = mgr.GetLocked(ctx, "u1")
	assert.ErrorIs(t, err, lock.ErrNotAcquired)

	require.NoError(t, handle.Release(ctx))

	_, err = mgr.GetLocked(ctx, "u1")
	assert.NoError(t, err)
}
