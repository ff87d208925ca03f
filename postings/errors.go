package postings

import "errors"

var (
	// ErrCorruptedList is returned when a serialized postings list fails
	// structural validation.
	ErrCorruptedList = errors.New("postings: corrupted postings list")

	// ErrTermNotFound is returned by Segment.Iterator for unknown terms.
	ErrTermNotFound = errors.New("postings: term not found")

	// ErrSegmentClosed is returned when a closed segment is used.
	ErrSegmentClosed = errors.New("postings: segment closed")
)
