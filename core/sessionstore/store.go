package sessionstore

import "context"

// Store is the dual-state session persistence contract. Implementations must
// make every operation atomic with respect to every other operation on the
// same (kind, key): no caller may ever observe both slots populated, or both
// empty after a conflict.
//
// All operations check ctx before touching the backing store. Expected
// conditions (not-found, state conflicts) are sentinel errors from this
// package; only cancellation and infrastructure faults interrupt control
// flow otherwise.
type Store[Data any] interface {
	// Kind returns the session kind discriminator the store was built with.
	Kind() string

	// Add creates the regular record if neither slot is occupied. When the
	// regular record already exists, it returns the existing record together
	// with ErrSessionInProgress; an occupied evicted slot yields
	// ErrSessionFinished.
	Add(ctx context.Context, key string, data Data, opt Options) (*Session[Data], error)

	// Get returns the regular record and refreshes its sliding expiration.
	Get(ctx context.Context, key string) (*Session[Data], error)

	// GetEvicted mirrors Get against the evicted slot.
	GetEvicted(ctx context.Context, key string) (*Session[Data], error)

	// Refresh touches the regular record's sliding expiration without
	// returning the payload. Conflict rules match Get.
	Refresh(ctx context.Context, key string) error

	// Update overwrites the payload of an existing regular record, bumps the
	// version by one, and refreshes the remaining lifetime under the
	// record's stored expiration policy. Returns the updated record.
	Update(ctx context.Context, sess *Session[Data]) (*Session[Data], error)

	// Evict atomically deletes the regular record and creates the evicted
	// record with the same payload under a new expiration policy.
	Evict(ctx context.Context, key string, opt Options) (*Session[Data], error)

	// Restore atomically deletes the evicted record and re-creates the
	// regular record under a new expiration policy.
	Restore(ctx context.Context, key string, opt Options) (*Session[Data], error)
}
