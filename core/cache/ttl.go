package cache

import (
	"container/list"
	"time"
)

// EvictionReason explains why an entry left the cache.
type EvictionReason int

const (
	// ReasonExpired means the entry's lifetime elapsed.
	ReasonExpired EvictionReason = iota + 1
	// ReasonRemoved means the entry was deleted explicitly.
	ReasonRemoved
	// ReasonReplaced means Set overwrote an existing entry.
	ReasonReplaced
	// ReasonCapacity means the entry was pushed out by the capacity bound.
	ReasonCapacity
)

// String returns a human-readable reason name for logging.
func (r EvictionReason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonRemoved:
		return "removed"
	case ReasonReplaced:
		return "replaced"
	case ReasonCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means no expiry
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// TTLCache is a generic cache with per-entry lifetimes and LRU capacity
// eviction. It is not safe for concurrent use; see the package documentation.
type TTLCache[K comparable, V any] struct {
	capacity int
	entries  map[K]*list.Element
	order    *list.List // front = most recently used
	onEvict  func(key K, value V, reason EvictionReason)
}

// New creates a cache. A capacity of zero or less means unbounded; a positive
// capacity evicts the least recently used entry when full.
func New[K comparable, V any](capacity int) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		capacity: capacity,
		entries:  make(map[K]*list.Element),
		order:    list.New(),
	}
}

// SetEvictCallback registers a callback invoked whenever an entry leaves the
// cache, with the reason it left. The callback runs synchronously inside the
// mutating operation.
func (c *TTLCache[K, V]) SetEvictCallback(fn func(key K, value V, reason EvictionReason)) {
	c.onEvict = fn
}

// Get returns the value for key and marks it recently used. An expired entry
// is evicted (ReasonExpired) and reported as a miss.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if e.expired(time.Now()) {
		c.removeElement(el, ReasonExpired)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Peek returns the value for key without marking it recently used. An
// expired entry reports as a miss but is left in place for Sweep or a later
// Get to evict.
func (c *TTLCache[K, V]) Peek(key K) (V, bool) {
	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if e.expired(time.Now()) {
		return zero, false
	}
	return e.value, true
}

// Add inserts the value only if the key is absent (or present but expired)
// and reports whether it was inserted. This is the mutual-exclusion primitive
// local lock backings build on.
func (c *TTLCache[K, V]) Add(key K, value V, ttl time.Duration) bool {
	if _, ok := c.Get(key); ok {
		return false
	}
	c.insert(key, value, ttl)
	return true
}

// Set inserts or replaces the value for key. A replaced entry is reported to
// the eviction callback with ReasonReplaced.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if el, ok := c.entries[key]; ok {
		c.removeElement(el, ReasonReplaced)
	}
	c.insert(key, value, ttl)
}

// Touch resets the entry's lifetime without changing its value and reports
// whether the entry was present (and not expired).
func (c *TTLCache[K, V]) Touch(key K, ttl time.Duration) bool {
	el, ok := c.entries[key]
	if !ok {
		return false
	}
	e := el.Value.(*entry[K, V])
	if e.expired(time.Now()) {
		c.removeElement(el, ReasonExpired)
		return false
	}
	e.expiresAt = expiresAt(ttl)
	c.order.MoveToFront(el)
	return true
}

// Delete removes the entry for key (ReasonRemoved) and reports whether it
// was present.
func (c *TTLCache[K, V]) Delete(key K) bool {
	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(el, ReasonRemoved)
	return true
}

// Sweep evicts every expired entry (ReasonExpired) and returns the count.
func (c *TTLCache[K, V]) Sweep() int {
	now := time.Now()
	var expired []*list.Element
	for _, el := range c.entries {
		if el.Value.(*entry[K, V]).expired(now) {
			expired = append(expired, el)
		}
	}
	for _, el := range expired {
		c.removeElement(el, ReasonExpired)
	}
	return len(expired)
}

// Len returns the number of entries, including any not yet swept expired ones.
func (c *TTLCache[K, V]) Len() int {
	return len(c.entries)
}

// Cap returns the configured capacity bound; zero or less means unbounded.
func (c *TTLCache[K, V]) Cap() int {
	return c.capacity
}

func (c *TTLCache[K, V]) insert(key K, value V, ttl time.Duration) {
	if c.capacity > 0 && len(c.entries) >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.removeElement(back, ReasonCapacity)
		}
	}
	el := c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt(ttl)})
	c.entries[key] = el
}

func (c *TTLCache[K, V]) removeElement(el *list.Element, reason EvictionReason) {
	e := el.Value.(*entry[K, V])
	delete(c.entries, e.key)
	c.order.Remove(el)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value, reason)
	}
}

func expiresAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
