package model

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the API layer as structured payloads.
var (
	// ErrItemNotFound means a query resolved to no catalog item.
	ErrItemNotFound = errors.New("item not found")

	// ErrNoBenchmark means no grocery item qualifies as a comparison
	// benchmark (none has a defined price-per-100g).
	ErrNoBenchmark = errors.New("no benchmark available")

	// ErrCatalogUnavailable means the catalog store could not be read.
	// Distinct from an empty catalog, which is a valid no-results state.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// ValidationError rejects a malformed source record. The refresh
// pipeline logs and skips the record without aborting the batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SourceError wraps a per-source fetch failure. It stays contained in
// the refresh orchestrator and is reflected only in job status.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return "source " + e.Source + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
