// Package serialqueue provides a FIFO serializing executor for units of work
// that touch shared, non-thread-safe state.
//
// A Queue runs every submitted unit strictly in submission order, one at a
// time, each unit fully completing before the next begins. This turns a
// read-check-write sequence against a local cache into an atomic step without
// a transaction primitive: funnel every mutating access through one queue.
//
// # Usage
//
// Synchronous submission blocks until the unit has run:
//
//	q := serialqueue.New()
//	defer q.Close()
//
//	err := q.Do(ctx, func(ctx context.Context) error {
//		if _, ok := cache.Get(key); ok {
//			return ErrExists
//		}
//		cache.Set(key, value, ttl)
//		return nil
//	})
//
// Asynchronous submission returns a Future:
//
//	fut, err := q.Go(ctx, cleanup)
//	if err != nil {
//		return err
//	}
//	// ... later
//	if err := fut.Await(); err != nil {
//		log.Println("cleanup failed:", err)
//	}
//
// The submission context is checked when the unit is enqueued and again
// immediately before it runs; a unit whose context is already canceled is
// skipped and its Future completes with the context error. Cancelling the
// context of a Do call that is already waiting returns the context error to
// the caller, but the unit may still execute; treat that as "effect unknown".
//
// Close drains all pending units before stopping the worker. Submissions
// after Close fail with ErrQueueClosed.
package serialqueue
