// Package apperr defines the error taxonomy shared across the service.
//
// Every failure that crosses a package boundary is classified with a Code so
// callers can decide between surfacing, retrying, or falling back without
// string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable error category for programmatic handling.
type Code string

const (
	CodeUnknown    Code = "unknown"
	CodeValidation Code = "validation"
	CodeNotFound   Code = "not_found"
	// CodeTransport covers network failures, non-2xx responses and timeouts
	// from external collaborators (generator, hosting).
	CodeTransport Code = "transport"
	// CodeMalformedResponse means an external call succeeded but the body
	// could not be interpreted as expected.
	CodeMalformedResponse Code = "malformed_response"
	// CodeStorage covers persistent store read/write failures. Fatal for the
	// operation, never allowed to corrupt previously committed records.
	CodeStorage Code = "storage"
)

// Error carries a code, a human message and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As through the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a code and a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain, CodeUnknown if none.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Validation is shorthand for a caller-input error.
func Validation(message string) *Error { return New(CodeValidation, message) }

// NotFound is shorthand for a missing-entity error.
func NotFound(message string) *Error { return New(CodeNotFound, message) }
