package serialqueue

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Future represents the completion of a queued unit of work.
type Future struct {
	err  error
	done chan struct{}
}

// Await blocks until the unit has run and returns its error.
func (f *Future) Await() error {
	<-f.done
	return f.err
}

// AwaitWithTimeout waits for the unit to complete or the timeout to elapse.
// On timeout it returns ErrTimeout; the unit still runs in its queue slot.
func (f *Future) AwaitWithTimeout(timeout time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// IsComplete reports whether the unit has finished without blocking.
func (f *Future) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

type unit struct {
	ctx context.Context
	fn  func(context.Context) error
	fut *Future
}

// Queue executes submitted units one at a time in strict submission order.
// Submission order is defined by the order in which Go/Do calls win the
// internal mutex, so concurrent submitters are serialized here, not at the
// call site.
type Queue struct {
	mu      sync.Mutex
	items   []*unit
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
	logger  *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger for internal diagnostics (recovered panics).
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// New creates a queue and starts its single worker goroutine.
func New(opts ...Option) *Queue {
	q := &Queue{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(q)
	}
	go q.run()
	return q
}

// Go enqueues a unit and returns a Future that completes when it has run.
// Returns the context error if ctx is already canceled, or ErrQueueClosed
// after Close.
func (q *Queue) Go(ctx context.Context, fn func(context.Context) error) (*Future, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fut := &Future{done: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.items = append(q.items, &unit{ctx: ctx, fn: fn, fut: fut})
	q.mu.Unlock()

	q.signal()
	return fut, nil
}

// Do enqueues a unit and blocks until it has run, returning its error.
// If ctx is canceled while waiting, Do returns the context error even though
// the unit may still execute in its slot.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	fut, err := q.Go(ctx, fn)
	if err != nil {
		return err
	}
	select {
	case <-fut.done:
		return fut.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of units waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting new units, drains the pending ones, and waits for
// the worker to exit. Safe to call more than once.
func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
	<-q.stopped
	return nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for len(q.items) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			q.mu.Lock()
		}
		u := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.exec(u)
	}
}

// exec runs a single unit to completion, converting panics into errors so a
// misbehaving unit cannot kill the worker and wedge every later submission.
func (q *Queue) exec(u *unit) {
	defer close(u.fut.done)

	if err := u.ctx.Err(); err != nil {
		u.fut.err = err
		return
	}

	defer func() {
		if r := recover(); r != nil {
			u.fut.err = fmt.Errorf("serialqueue: unit panicked: %v", r)
			q.logger.Error("queued unit panicked", slog.Any("panic", r))
		}
	}()
	u.fut.err = u.fn(u.ctx)
}
