/*Package core provides the failure taxonomy shared by the repositories and
the HTTP boundary.
*/
package core

import (
	"errors"
	"fmt"
)

// The repositories raise these failure kinds. The HTTP boundary translates
// each kind to a fixed status code; anything else is an internal error.
var (
	// ErrNotFound means a referenced entity is absent
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness rule was violated, e.g. a duplicate username
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized means a credential check failed
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadRequest means the request was malformed, e.g. an empty partial update
	ErrBadRequest = errors.New("bad request")
)

// NotFoundf returns an error wrapping ErrNotFound with a formatted message.
func NotFoundf(format string, a ...interface{}) error {
	return kindError(ErrNotFound, format, a...)
}

// Conflictf returns an error wrapping ErrConflict with a formatted message.
func Conflictf(format string, a ...interface{}) error {
	return kindError(ErrConflict, format, a...)
}

// Unauthorizedf returns an error wrapping ErrUnauthorized with a formatted message.
func Unauthorizedf(format string, a ...interface{}) error {
	return kindError(ErrUnauthorized, format, a...)
}

// BadRequestf returns an error wrapping ErrBadRequest with a formatted message.
func BadRequestf(format string, a ...interface{}) error {
	return kindError(ErrBadRequest, format, a...)
}

func kindError(kind error, format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, a...))
}
