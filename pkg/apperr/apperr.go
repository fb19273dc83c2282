// Package apperr contains the error kinds services return and their HTTP
// status mapping
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	Conflict
	Unauthenticated
	Forbidden
	NotFound
	Upstream
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	case Upstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is an error that is safe to show to the client. Cause is only
// ever logged.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ", " + e.Cause.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

func Wrap(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain. Anything
// else is Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Internal
}

// Is reports whether err carries the given kind
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Status maps err to the HTTP status code it should be answered with
func Status(err error) int {
	switch KindOf(err) {
	case Validation, Conflict:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client facing message of err. Internal and upstream
// failures never leak their cause.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Internal server error"
	}

	switch e.Kind {
	case Internal:
		return "Internal server error"
	case Upstream:
		if e.Message != "" {
			return e.Message
		}
		return "Internal server error"
	}

	return e.Message
}
