package rating

import "errors"

var (
	// ErrMissingAlg is returned when a GPT declares an algorithm with no implementation.
	ErrMissingAlg = errors.New("rating algorithm not implemented")
	// ErrUnknownAlg is returned when an algorithm is requested that the GPT does not declare.
	ErrUnknownAlg = errors.New("unknown rating algorithm")
)
