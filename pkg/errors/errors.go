// Package errors provides structured error types for schemaevo.
//
// Every failure raised by the versioning core carries a machine-readable
// [Code] so callers (the CLI, tests, a future serializer) can tell an
// invariant violation apart from an unresolvable dependency without string
// matching.
//
// # Error Codes
//
//   - INVALID_INPUT, NOT_FOUND: caller supplied something unusable
//   - KIND_MISMATCH, ALREADY_LINKED, INVARIANT_VIOLATION: programming errors
//     against the version table; never retried
//   - UNRESOLVED_DEPENDENCY: a clone or ordering step could make no progress
//   - VERIFY_FAILED: a change record failed its consistency self-check
//   - INTERNAL: should not happen
//
// # Usage
//
//	err := errors.New(errors.ErrCodeAlreadyLinked, "element %d already linked in %s", id, v)
//	if errors.Is(err, errors.ErrCodeAlreadyLinked) {
//	    // programming error in the caller
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the versioning core.
const (
	// Input errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"

	// Version table invariant errors
	ErrCodeKindMismatch       Code = "KIND_MISMATCH"
	ErrCodeAlreadyLinked      Code = "ALREADY_LINKED"
	ErrCodeInvariantViolation Code = "INVARIANT_VIOLATION"

	// Structural errors
	ErrCodeUnresolvedDependency Code = "UNRESOLVED_DEPENDENCY"
	ErrCodeVerifyFailed         Code = "VERIFY_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message and cause without code prefixes,
// keeping any context wrapped around the error with fmt.Errorf.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + UserMessage(e.Cause)
	}
	if full, inner := err.Error(), e.Error(); full != inner && strings.HasSuffix(full, inner) {
		return strings.TrimSuffix(full, inner) + msg
	}
	return msg
}

// IsProgrammingError reports whether err belongs to the invariant class:
// kind mismatches, duplicate links and broken version table invariants.
// Such errors indicate a bug in the caller and must not be retried.
func IsProgrammingError(err error) bool {
	switch GetCode(err) {
	case ErrCodeKindMismatch, ErrCodeAlreadyLinked, ErrCodeInvariantViolation, ErrCodeVerifyFailed:
		return true
	default:
		return false
	}
}
