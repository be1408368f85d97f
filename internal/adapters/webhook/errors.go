package webhook

import "errors"

var (
	// ErrBusClosed is returned when emitting on a closed bus.
	ErrBusClosed = errors.New("webhook bus closed")
	// ErrBusFull is returned when the bus buffer is full and the event is dropped.
	ErrBusFull = errors.New("webhook bus full")
	// ErrDeliveryFailed is returned when a listener answers with a non-2xx status.
	ErrDeliveryFailed = errors.New("webhook delivery failed")
)
