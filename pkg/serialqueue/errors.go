package serialqueue

import "errors"

var (
	// ErrQueueClosed is returned when a unit is submitted after Close.
	ErrQueueClosed = errors.New("serialqueue: queue is closed")
	// ErrTimeout is returned by Future.AwaitWithTimeout when the unit has not
	// completed within the given duration.
	ErrTimeout = errors.New("serialqueue: await timed out")
)
