package scoreimport

import "errors"

var (
	// ErrNoPayloads is returned for an import without entries.
	ErrNoPayloads = errors.New("import has no entries")
	// ErrInvalidUser is returned for a non-positive userID.
	ErrInvalidUser = errors.New("invalid user")
)
