package domain

import "errors"

// Error kinds surfaced by the engine. Callers match them with errors.Is;
// the concrete error carries the collection, document or index involved.
var (
	// ErrNotFound means a collection, document or index is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a collection or index name is already taken.
	ErrConflict = errors.New("conflict")

	// ErrMalformedInput means a document or log record could not be accepted.
	ErrMalformedInput = errors.New("malformed input")

	// ErrIOFailure means a log append, compaction or backup write failed.
	ErrIOFailure = errors.New("io failure")
)
