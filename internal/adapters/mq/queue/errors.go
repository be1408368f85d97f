package queue

import "errors"

var (
	// ErrFull is returned when the queue is at capacity.
	ErrFull = errors.New("job queue full")
	// ErrClosed is returned when enqueuing on a closed queue.
	ErrClosed = errors.New("job queue closed")
)
