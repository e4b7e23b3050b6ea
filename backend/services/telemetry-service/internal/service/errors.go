package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPayload means the ingest payload is neither vehicle nor meter shaped.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNotFound means the query target has no matching record.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable marks failures of the underlying store. Never retried here.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// FieldError names one rejected input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every offending field of a rejected input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldNames returns the offending field names in report order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

type fieldErrors []FieldError

func (fe *fieldErrors) add(field, reason string) {
	*fe = append(*fe, FieldError{Field: field, Reason: reason})
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// StoreError wraps a driver failure so it matches ErrStoreUnavailable and the cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

func storeFailure(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
