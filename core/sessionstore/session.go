package sessionstore

import "time"

// Session is a dual-state session record with a caller-defined payload.
// The Data type parameter allows application-specific session structures.
//
// A record lives in exactly one of two storage slots at a time: the regular
// (active) slot or the evicted (finished) slot. The store moves it between
// the slots atomically; callers never hold a live reference across processes
// and must re-fetch through the store on every operation.
type Session[Data any] struct {
	// Key is the caller-supplied session identifier, unique per session kind.
	Key string `json:"key"`

	// Version counts accepted updates. It starts at 1 and the store
	// increments it by exactly one per accepted Update; it never decreases.
	Version int64 `json:"version"`

	// StartedAt is the creation timestamp, set once by Add.
	StartedAt time.Time `json:"started_at"`

	// ProviderKey and EvictedProviderKey are the two derived storage keys,
	// written back onto the record so it is self-describing. The in-process
	// backing uses them for lock cleanup; remote backings carry them as
	// informational fields.
	ProviderKey        string `json:"provider_key,omitempty"`
	EvictedProviderKey string `json:"evicted_provider_key,omitempty"`

	// Data holds the opaque caller-defined payload. It is JSON-serialized
	// whenever the record crosses the store boundary.
	Data Data `json:"data"`
}

// regularKey derives the active-slot storage key: {prefix}:{kind}:{key}.
func regularKey(prefix, kind, key string) string {
	return prefix + ":" + kind + ":" + key
}

// evictedKey derives the finished-slot storage key: {prefix}:evicted:{kind}:{key}.
func evictedKey(prefix, kind, key string) string {
	return prefix + ":evicted:" + kind + ":" + key
}

// LockResource derives the lock resource name protecting a (kind, key) pair.
func LockResource(kind, key string) string {
	return kind + ":" + key
}
