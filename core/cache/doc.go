// Package cache provides a generic TTL cache with eviction callbacks.
//
// TTLCache supports per-entry absolute lifetimes, insert-if-absent semantics
// (Add), sliding refresh (Touch), recency-neutral reads (Peek), and an
// eviction callback that reports why
// an entry left the cache: it expired, it was removed explicitly, it was
// replaced by Set, or it was pushed out by the capacity bound.
//
// The cache is deliberately NOT safe for concurrent use. It is designed to
// sit behind a serializing executor (see pkg/serialqueue) that funnels every
// mutating access through a single ordered worker; callers that want a
// standalone thread-safe cache should wrap it themselves.
//
//	c := cache.New[string, int](0) // unbounded
//	c.SetEvictCallback(func(key string, v int, reason cache.EvictionReason) {
//		log.Printf("evicted %s (%s)", key, reason)
//	})
//
//	if c.Add("job:1", 42, time.Minute) {
//		// inserted; "job:1" was absent
//	}
//
// Expired entries are dropped lazily on access and eagerly by Sweep, which a
// background janitor can invoke periodically to deliver timely expiration
// callbacks.
package cache
