// Package domainerrors provides coded errors for the domain layer. Services
// attach a Code so callers (and eventually the API layer) can branch on the
// class of failure without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeNotFound signals that a user, context, attribute, consent or
	// connection id did not resolve.
	CodeNotFound Code = "not_found"

	// CodeConflict signals a uniqueness violation, e.g. an attribute name
	// already taken (case-insensitive) by the same user.
	CodeConflict Code = "conflict"

	// CodeInvariantViolation signals a precondition failure inside the domain
	// model. No partial write occurs.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeValidation signals rejected input at a trust boundary.
	CodeValidation Code = "validation"

	// CodeInvalidInput signals a malformed id or enum value.
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest signals a structurally invalid request.
	CodeBadRequest Code = "bad_request"

	// CodeInternal signals an infrastructure failure (store, broker).
	CodeInternal Code = "internal"
)

// Error carries a code, a message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a coded domain error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while preserving the cause chain.
// Wrapping nil returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
