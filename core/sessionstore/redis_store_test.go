package sessionstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/core/sessionstore"
)

type gameState struct {
	Level int    `json:"level"`
	Score int    `json:"score"`
	Name  string `json:"name"`
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *sessionstore.RedisStore[gameState]) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, sessionstore.NewRedisStore[gameState](client, "game")
}

func TestRedisStore_Add(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates the regular record", func(t *testing.T) {
		t.Parallel()

		mr, store := newRedisStore(t)
		sess, err := store.Add(ctx, "u1", gameState{Level: 1, Name: "alice"}, sessionstore.Options{})
		require.NoError(t, err)

		assert.Equal(t, "u1", sess.Key)
		assert.Equal(t, int64(1), sess.Version)
		assert.Equal(t, "sessionkit:game:u1", sess.ProviderKey)
		assert.Equal(t, "sessionkit:evicted:game:u1", sess.EvictedProviderKey)
		assert.False(t, sess.StartedAt.IsZero())

		assert.True(t, mr.Exists("sessionkit:game:u1"))
		assert.False(t, mr.Exists("sessionkit:evicted:game:u1"))
	})

	t.Run("second add conflicts and carries the existing record", func(t *testing.T) {
		t.Parallel()

		_, store := newRedisStore(t)
		_, err := store.Add(ctx, "u1", gameState{Name: "alice"}, sessionstore.Options{})
		require.NoError(t, err)

		existing, err := store.Add(ctx, "u1", gameState{Name: "mallory"}, sessionstore.Options{})
		require.ErrorIs(t, err, sessionstore.ErrSessionInProgress)
		require.NotNil(t, existing)
		assert.Equal(t, "alice", existing.Data.Name)
	})

	t.Run("add over an evicted record reports finished", func(t *testing.T) {
		t.Parallel()

		_, store := newRedisStore(t)
		_, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{})
		require.NoError(t, err)
		_, err = store.Evict(ctx, "u1", sessionstore.Options{})
		require.NoError(t, err)

		_, err = store.Add(ctx, "u1", gameState{}, sessionstore.Options{})
		assert.ErrorIs(t, err, sessionstore.ErrSessionFinished)
	})

	t.Run("applies the computed ttl", func(t *testing.T) {
		t.Parallel()

		mr, store := newRedisStore(t)
		_, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{
			AbsoluteFromNow: 10 * time.Second,
			Sliding:         5 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, mr.TTL("sessionkit:game:u1"))
	})

	t.Run("sub-second absolute bound rounds up to a whole second", func(t *testing.T) {
		t.Parallel()

		mr, store := newRedisStore(t)
		_, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{
			AbsoluteFromNow: 200 * time.Millisecond,
		})
		require.NoError(t, err)

		// The record must not be deleted out from under a bound that is
		// still in the future.
		_, err = store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, time.Second, mr.TTL("sessionkit:game:u1"))

		mr.FastForward(2 * time.Second)
		_, err = store.Get(ctx, "u1")
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)
	})

	t.Run("observes cancellation before the call", func(t *testing.T) {
		t.Parallel()

		_, store := newRedisStore(t)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.Add(canceled, "u1", gameState{}, sessionstore.Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRedisStore_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("evict then restore round-trips the payload", func(t *testing.T) {
		t.Parallel()

		mr, store := newRedisStore(t)
		_, err := store.Add(ctx, "u1", gameState{Level: 3, Score: 42}, sessionstore.Options{})
		require.NoError(t, err)

		evicted, err := store.Evict(ctx, "u1", sessionstore.Options{})
		require.NoError(t, err)
		assert.Equal(t, 42, evicted.Data.Score)
		assert.False(t, mr.Exists("sessionkit:game:u1"))
		assert.True(t, mr.Exists("sessionkit:evicted:game:u1"))

		_, err = store.Get(ctx, "u1")
		assert.ErrorIs(t, err, sessionstore.ErrSessionFinished)

		finished, err := store.GetEvicted(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 42, finished.Data.Score)

		restored, err := store.Restore(ctx, "u1", sessionstore.Options{})
		require.NoError(t, err)
		assert.Equal(t, 42, restored.Data.Score)
		assert.True(t, mr.Exists("sessionkit:game:u1"))
		assert.False(t, mr.Exists("sessionkit:evicted:game:u1"))

		_, err = store.GetEvicted(ctx, "u1")
		assert.ErrorIs(t, err, sessionstore.ErrSessionRestored)

		active, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 42, active.Data.Score)
	})

	t.Run("conflict symmetry preserves intervening updates", func(t *testing.T) {
		t.Parallel()

		_, store := newRedisStore(t)
		sess, err := store.Add(ctx, "u1", gameState{Score: 1}, sessionstore.Options{})
		require.NoError(t, err)

		sess.Data.Score = 2
		sess, err = store.Update(ctx, sess)
		require.NoError(t, err)
		require.Equal(t, int64(2), sess.Version)

		_, err = store.Evict(ctx, "u1", sessionstore.Options{})
		require.NoError(t, err)
		restored, err := store.Restore(ctx, "u1", sessionstore.Options{})
		require.NoError(t, err)

		assert.Equal(t, 2, restored.Data.Score)
		assert.Equal(t, int64(2), restored.Version)
	})

	t.Run("operations on a missing key report not found", func(t *testing.T) {
		t.Parallel()

		_, store := newRedisStore(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)
		_, err = store.GetEvicted(ctx, "missing")
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)
		assert.ErrorIs(t, store.Refresh(ctx, "missing"), sessionstore.ErrNotFound)
		_, err = store.Update(ctx, &sessionstore.Session[gameState]{Key: "missing"})
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)
		_, err = store.Evict(ctx, "missing", sessionstore.Options{})
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)
		_, err = store.Restore(ctx, "missing", sessionstore.Options{})
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)
	})
}

func TestRedisStore_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("bumps the version by exactly one", func(t *testing.T) {
		t.Parallel()

		_, store := newRedisStore(t)
		sess, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{})
		require.NoError(t, err)

		for want := int64(2); want <= 5; want++ {
			sess, err = store.Update(ctx, sess)
			require.NoError(t, err)
			assert.Equal(t, want, sess.Version)
		}

		stored, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), stored.Version)
	})

	t.Run("update of an evicted session reports finished", func(t *testing.T) {
		t.Parallel()

		_, store := newRedisStore(t)
		sess, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{})
		require.NoError(t, err)
		_, err = store.Evict(ctx, "u1", sessionstore.Options{})
		require.NoError(t, err)

		_, err = store.Update(ctx, sess)
		assert.ErrorIs(t, err, sessionstore.ErrSessionFinished)
	})
}

func TestRedisStore_SlidingExpiration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("get resets the sliding lifetime", func(t *testing.T) {
		t.Parallel()

		mr, store := newRedisStore(t)
		_, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{Sliding: 5 * time.Second})
		require.NoError(t, err)

		mr.FastForward(3 * time.Second)
		_, err = store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, mr.TTL("sessionkit:game:u1"))

		// Without the refresh the record would have lapsed here.
		mr.FastForward(4 * time.Second)
		_, err = store.Get(ctx, "u1")
		require.NoError(t, err)

		mr.FastForward(6 * time.Second)
		_, err = store.Get(ctx, "u1")
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)
	})

	t.Run("refresh never extends past the absolute bound", func(t *testing.T) {
		t.Parallel()

		mr, store := newRedisStore(t)
		_, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{
			AbsoluteFromNow: 4 * time.Second,
			Sliding:         10 * time.Second,
		})
		require.NoError(t, err)

		require.NoError(t, store.Refresh(ctx, "u1"))
		ttl := mr.TTL("sessionkit:game:u1")
		// The bound rounds up to the next whole second, so the capped
		// lifetime may exceed the nominal 4s by at most one second.
		assert.LessOrEqual(t, ttl, 5*time.Second)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("refresh of an evicted session reports finished", func(t *testing.T) {
		t.Parallel()

		_, store := newRedisStore(t)
		_, err := store.Add(ctx, "u1", gameState{}, sessionstore.Options{})
		require.NoError(t, err)
		_, err = store.Evict(ctx, "u1", sessionstore.Options{})
		require.NoError(t, err)

		assert.ErrorIs(t, store.Refresh(ctx, "u1"), sessionstore.ErrSessionFinished)
	})
}

func TestRedisStore_ScriptCacheFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// A fresh server has an empty script cache, so the very first invocation
	// already exercises the EVALSHA -> load -> retry path. Flushing mid-use
	// proves the fallback also recovers an established store.
	mr, store := newRedisStore(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	_, err := store.Add(ctx, "u1", gameState{Score: 7}, sessionstore.Options{})
	require.NoError(t, err)

	require.NoError(t, client.ScriptFlush(ctx).Err())

	sess, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, sess.Data.Score)
}
