// Package lock provides distributed mutual exclusion for call sites that
// need exclusive access across an entire read-modify-write sequence.
//
// A Coordinator acquires a Handle for a named resource with an expiry and an
// optional bounded wait/retry loop. Two interchangeable backings share the
// contract:
//
//   - RedsyncCoordinator delegates to a Redlock-style coordination service
//     over Redis-compatible nodes.
//   - LocalCoordinator emulates the same semantics inside one process using
//     a TTL cache's insert-if-absent primitive behind a FIFO serial queue.
//
// # Handles
//
// Every acquisition attempt, successful or not, yields a Handle carrying
// the resource name, a per-attempt uuid token, and a status. Release is
// scoped, idempotent, and ownership-checked:
//
//	handle, err := coordinator.AcquireWait(ctx, "game:u1", 5*time.Second, 2*time.Second, 100*time.Millisecond)
//	if err != nil {
//		if errors.Is(err, lock.ErrNotAcquired) {
//			// contention: handle.Status() is Conflicted, Expired, or NoQuorum
//		}
//		return err
//	}
//	defer handle.Release(ctx)
//
// An acquired handle expires itself: a background watcher tied to the handle
// lifetime flips the status to StatusExpired when the expiry elapses without
// a release, and is cancelled by Release so no timers leak. The local backing
// additionally reflects cache-driven departures (entry expired or removed
// underneath the holder) onto the handle via the cache eviction callback.
//
// Contention is an expected outcome, reported as ErrNotAcquired with the
// terminal status on the handle; only cancellation and infrastructure faults
// surface as other errors.
package lock
