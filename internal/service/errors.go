package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFilter marks a request the caller must fix (HTTP 400).
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrNotFound marks a lookup the reference store could not answer (HTTP 404).
	ErrNotFound = errors.New("not found")
)

// InvalidFilterError describes which request field was rejected.
type InvalidFilterError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidFilterError) Unwrap() error {
	return ErrInvalidFilter
}

func invalidFilter(field, value, reason string) error {
	return &InvalidFilterError{Field: field, Value: value, Reason: reason}
}
