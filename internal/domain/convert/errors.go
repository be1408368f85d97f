package convert

import "errors"

var (
	// ErrUnknownImportType is returned for an import type with no registered converter.
	ErrUnknownImportType = errors.New("unknown import type")
	// ErrInternal marks catalog integrity problems. Such failures are logged as severe.
	ErrInternal = errors.New("internal converter failure")
	// ErrParse is returned when an import body cannot be split into entries.
	ErrParse = errors.New("could not parse import")
)
