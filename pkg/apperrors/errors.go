// Package apperrors defines the error taxonomy shared across the engine.
//
// Transport-level transience (429/503) is absorbed inside the record store
// client and never surfaces here; everything in this package is a terminal,
// caller-visible outcome.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound means a by-key lookup matched no shipment. Distinct from
	// an empty aggregation result.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable means the record store dependency is not
	// configured or reachable at all. Summary endpoints degrade to empty
	// results instead of returning this; per-shipment lookups surface it.
	ErrUpstreamUnavailable = errors.New("record store unavailable")

	// ErrSchemaLockMissing means no schema lock snapshot is loaded, so
	// field validation cannot run. Ingestion refuses rather than skipping
	// validation silently.
	ErrSchemaLockMissing = errors.New("schema lock not loaded")
)

// StoreError is a non-retryable record store response. The status code and
// response body are surfaced verbatim so the caller can diagnose the request.
type StoreError struct {
	StatusCode int
	Body       string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store error %d: %s", e.StatusCode, e.Body)
}

// RetryExhaustedError is returned when the per-request attempt ceiling is
// reached without a terminal response.
type RetryExhaustedError struct {
	Method   string
	URL      string
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("record store request failed after %d attempts: %s %s", e.Attempts, e.Method, e.URL)
}

// ValidationError reports field names rejected by the schema lock, with
// up to three rename suggestions per invalid field. It is always surfaced
// to the ingestion caller; invalid fields are never silently dropped.
type ValidationError struct {
	Table         string
	InvalidFields []string
	Suggestions   map[string][]string
}

func (e *ValidationError) Error() string {
	fields := append([]string(nil), e.InvalidFields...)
	sort.Strings(fields)
	return fmt.Sprintf("invalid fields for table %s: %s", e.Table, strings.Join(fields, ", "))
}
