// Package apperr defines the error taxonomy shared by the engine and the HTTP surface.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind categorizes an error for callers that need to decide on a response.
type Kind string

const (
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindNotFound     Kind = "NOT_FOUND"
	KindValidation   Kind = "VALIDATION"
	KindForbidden    Kind = "FORBIDDEN"
	KindUnavailable  Kind = "UNAVAILABLE"
	KindInternal     Kind = "INTERNAL"
)

// Error is a domain error carrying its kind, a user-facing message and an
// optional field name for validation failures.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s (field=%s): %v", e.Kind, e.Message, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Validation reports a bad request; field names the offending input when known.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Field: field}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Internal wraps an infrastructure failure. Deadline errors are reported as
// Unavailable so the caller knows the request may be retried.
func Internal(msg string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable(msg, err)
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
