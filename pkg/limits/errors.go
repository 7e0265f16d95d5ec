package limits

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is matched by every validation and parse failure.
	ErrInvalidRequest = errors.New("invalid load request")

	// ErrStoreUnavailable is matched by every ledger read, write, lock or
	// timeout failure during an evaluation.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrConfigInvalid is returned when the limits configuration is invalid.
	ErrConfigInvalid = errors.New("invalid limits configuration")
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is makes ValidationError match ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// ParseError reports an input value that could not be decoded.
type ParseError struct {
	Field string
	Value string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("cannot parse %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("cannot parse %s %q: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes ParseError match ErrInvalidRequest.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// PersistenceError wraps a ledger failure with the operation that failed.
type PersistenceError struct {
	// Op is the step that failed (lock, exists, count, sum, append, tx).
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes PersistenceError match ErrStoreUnavailable.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
