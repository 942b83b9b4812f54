package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/core/cache"
)

type eviction struct {
	key    string
	value  int
	reason cache.EvictionReason
}

func recordEvictions(c *cache.TTLCache[string, int]) *[]eviction {
	var evictions []eviction
	c.SetEvictCallback(func(key string, value int, reason cache.EvictionReason) {
		evictions = append(evictions, eviction{key, value, reason})
	})
	return &evictions
}

func TestTTLCache_Add(t *testing.T) {
	t.Parallel()

	t.Run("inserts only when absent", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		assert.True(t, c.Add("a", 1, 0))
		assert.False(t, c.Add("a", 2, 0))

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("treats an expired entry as absent", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		evictions := recordEvictions(c)

		require.True(t, c.Add("a", 1, 20*time.Millisecond))
		time.Sleep(40 * time.Millisecond)

		assert.True(t, c.Add("a", 2, 0))
		require.Len(t, *evictions, 1)
		assert.Equal(t, eviction{"a", 1, cache.ReasonExpired}, (*evictions)[0])
	})
}

func TestTTLCache_Peek(t *testing.T) {
	t.Parallel()

	t.Run("reads without evicting an expired entry", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		evictions := recordEvictions(c)

		require.True(t, c.Add("a", 1, 20*time.Millisecond))

		v, ok := c.Peek("a")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		time.Sleep(40 * time.Millisecond)
		_, ok = c.Peek("a")
		assert.False(t, ok)
		assert.Empty(t, *evictions)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("does not refresh recency", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](2)
		evictions := recordEvictions(c)

		require.True(t, c.Add("a", 1, 0))
		require.True(t, c.Add("b", 2, 0))

		// A Get would move "a" to the front; Peek must not, so "a" is
		// still the least recently used and falls to the capacity bound.
		_, _ = c.Peek("a")
		c.Set("c", 3, 0)

		require.Len(t, *evictions, 1)
		assert.Equal(t, eviction{"a", 1, cache.ReasonCapacity}, (*evictions)[0])
	})
}

func TestTTLCache_Expiration(t *testing.T) {
	t.Parallel()

	t.Run("get drops expired entries lazily", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		evictions := recordEvictions(c)

		c.Set("a", 1, 20*time.Millisecond)
		time.Sleep(40 * time.Millisecond)

		_, ok := c.Get("a")
		assert.False(t, ok)
		require.Len(t, *evictions, 1)
		assert.Equal(t, cache.ReasonExpired, (*evictions)[0].reason)
	})

	t.Run("touch resets the lifetime", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		c.Set("a", 1, 50*time.Millisecond)

		time.Sleep(30 * time.Millisecond)
		require.True(t, c.Touch("a", 50*time.Millisecond))
		time.Sleep(30 * time.Millisecond)

		_, ok := c.Get("a")
		assert.True(t, ok, "touched entry should have survived the original deadline")
	})

	t.Run("sweep evicts every expired entry", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		evictions := recordEvictions(c)

		c.Set("a", 1, 20*time.Millisecond)
		c.Set("b", 2, 20*time.Millisecond)
		c.Set("c", 3, 0)
		time.Sleep(40 * time.Millisecond)

		assert.Equal(t, 2, c.Sweep())
		assert.Equal(t, 1, c.Len())
		assert.Len(t, *evictions, 2)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		c.Set("a", 1, 0)
		assert.Equal(t, 0, c.Sweep())
		_, ok := c.Get("a")
		assert.True(t, ok)
	})
}

func TestTTLCache_EvictionReasons(t *testing.T) {
	t.Parallel()

	t.Run("delete reports removed", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		evictions := recordEvictions(c)

		c.Set("a", 1, 0)
		require.True(t, c.Delete("a"))
		assert.False(t, c.Delete("a"))

		require.Len(t, *evictions, 1)
		assert.Equal(t, eviction{"a", 1, cache.ReasonRemoved}, (*evictions)[0])
	})

	t.Run("set reports replaced", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](0)
		evictions := recordEvictions(c)

		c.Set("a", 1, 0)
		c.Set("a", 2, 0)

		require.Len(t, *evictions, 1)
		assert.Equal(t, eviction{"a", 1, cache.ReasonReplaced}, (*evictions)[0])
	})

	t.Run("capacity evicts the least recently used entry", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](2)
		evictions := recordEvictions(c)

		c.Set("a", 1, 0)
		c.Set("b", 2, 0)
		_, _ = c.Get("a") // "b" is now least recently used
		c.Set("c", 3, 0)

		require.Len(t, *evictions, 1)
		assert.Equal(t, eviction{"b", 2, cache.ReasonCapacity}, (*evictions)[0])

		_, ok := c.Get("a")
		assert.True(t, ok)
	})
}
