package model

import (
	"errors"
	"fmt"
	"strings"
)

// PartialFailure attributes one failed sub-domain fetch/parse to its domain.
// Partial failures degrade the domain to unavailable without aborting the
// cycle.
type PartialFailure struct {
	Domain Domain
	Err    error
}

func (f PartialFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Domain, f.Err)
}

// SchemaError marks a payload whose shape does not match what the info API
// documents. The offending shape is kept for the warning log.
type SchemaError struct {
	Domain Domain
	Detail string
	Shape  string // truncated offending payload
}

func (e *SchemaError) Error() string {
	if e.Shape == "" {
		return fmt.Sprintf("%s: unexpected payload shape: %s", e.Domain, e.Detail)
	}
	return fmt.Sprintf("%s: unexpected payload shape: %s (got %s)", e.Domain, e.Detail, e.Shape)
}

// NewSchemaError truncates the offending payload so a drifting endpoint does
// not flood the logs.
func NewSchemaError(domain Domain, detail string, shape []byte) *SchemaError {
	const maxShape = 256
	s := strings.TrimSpace(string(shape))
	if len(s) > maxShape {
		s = s[:maxShape] + "..."
	}
	return &SchemaError{Domain: domain, Detail: detail, Shape: s}
}

// IsSchemaMismatch reports whether err is (or wraps) a SchemaError.
func IsSchemaMismatch(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ErrCircuitOpen is returned instead of issuing a request when an endpoint's
// breaker is open; it degrades the domain like any other partial failure.
var ErrCircuitOpen = errors.New("endpoint circuit open")

// TotalCycleError means every core fetch failed. The coordinator keeps the
// previously published snapshot and retires nothing.
type TotalCycleError struct {
	Failures []PartialFailure
}

func (e *TotalCycleError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.String())
	}
	return "total cycle failure: " + strings.Join(parts, "; ")
}
