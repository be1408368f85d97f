package classes

import "errors"

var (
	// ErrUnknownClassSet is returned when a class set is not supported by the GPT.
	ErrUnknownClassSet = errors.New("unknown class set")
	// ErrInvalidClassValue is returned when a class index is outside the set.
	ErrInvalidClassValue = errors.New("invalid class value")
	// ErrARCUnavailable is returned when the ARC profile could not be fetched.
	ErrARCUnavailable = errors.New("arc profile unavailable")
)
