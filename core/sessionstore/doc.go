// Package sessionstore provides an atomic dual-state session store for
// distributed application instances.
//
// A session lives in exactly one of two slots: the regular (active) record
// or the evicted (finished) record. The store enforces that invariant across
// concurrent access from multiple processes: Add is mutually exclusive,
// Evict atomically moves the active record into the finished slot, Restore
// atomically moves it back, and every read refreshes sliding expiration
// without ever extending it past the absolute bound.
//
// # Backings
//
// RedisStore executes every state-changing operation as a single server-side
// Lua script against a Redis-compatible service, so the service itself
// serializes conflicting transitions. Scripts are invoked by content hash
// (EVALSHA) with a bounded full-body reload on script-cache misses.
//
// MemoryStore provides the same contract inside one process by funnelling
// every read-check-write through a pkg/serialqueue worker over a core/cache
// TTL cache. The queue and cache are shared with the in-process lock backing
// so there is a single serialization point for all local state.
//
// # Usage
//
//	type GameState struct {
//		Level int    `json:"level"`
//		Score int    `json:"score"`
//	}
//
//	store := sessionstore.NewRedisStore[GameState](client, "game",
//		sessionstore.WithKeyPrefix("myapp"),
//	)
//
//	sess, err := store.Add(ctx, "u1", GameState{Level: 1}, sessionstore.Options{
//		Sliding: 30 * time.Minute,
//	})
//	switch {
//	case errors.Is(err, sessionstore.ErrSessionInProgress):
//		// sess carries the existing record
//	case err != nil:
//		return err
//	}
//
//	sess.Data.Score += 10
//	sess, err = store.Update(ctx, sess) // version bumps by exactly one
//
//	sess, err = store.Evict(ctx, "u1", sessionstore.Options{AbsoluteFromNow: time.Hour})
//	// Get(ctx, "u1") now returns ErrSessionFinished; GetEvicted returns the record.
//
// # Expiration
//
// Options carries the policy: at most one of Absolute/AbsoluteFromNow plus
// an optional Sliding component. The remaining lifetime is
// min(absolute-now, sliding) when both are set; a sliding record's lifetime
// resets on each successful read, capped by the absolute bound. Invalid
// policies (both absolutes set, absolute in the past) are programmer errors
// and panic.
//
// # Errors
//
// Expected conditions are sentinel errors: ErrNotFound, ErrSessionInProgress
// (Add over an active record, which accompanies the existing record),
// ErrSessionFinished, ErrSessionRestored. ErrProtocolViolation marks an
// undefined backing reply and indicates a defect. Cancellation propagates as
// the context error, never folded into the above.
//
// # Locked operations
//
// Manager composes a Store with a lock.Coordinator for call sites that need
// exclusive access across an entire read-modify-write sequence; see
// UpdateLocked.
package sessionstore
