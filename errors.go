package skipgo

import "errors"

var (
	// ErrCorrupted is returned by Reader.Prepare when a serialized skip
	// region cannot be read, e.g. a stored level declaring zero length.
	// The region, and the postings list it indexes, must be treated as
	// unreadable; there is no partial recovery.
	ErrCorrupted = errors.New("skipgo: corrupted skip list")
)
