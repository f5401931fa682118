// Package corerr implements the two-kind error taxonomy the request
// pipeline and build/runtime phases rely on: an Expected error carries a
// status code and a message that is safe to return to the client
// verbatim, anything else is an Other error that gets logged and
// surfaced as a generic 500.
package corerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an Expected error: its Message is safe to serialize back to
// the client, its Status is the HTTP status code the envelope layer
// should use.
type Error struct {
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Expected builds a client-facing error carrying a status code.
func Expected(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Expectedf is Expected with fmt.Sprintf formatting.
func Expectedf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to an Expected error without leaking cause's text
// into Message (cause is only used for %w-style unwrapping/logging).
func Wrap(status int, message string, cause error) *Error {
	return &Error{Status: status, Message: message, cause: cause}
}

// AsExpected reports whether err (or something it wraps) is an Expected
// error, returning it if so.
func AsExpected(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err: the Expected status if err
// is one, otherwise 500 for any Other error.
func StatusOf(err error) int {
	if e, ok := AsExpected(err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}

// ClientMessage returns the text that is safe to put in the JSON error
// envelope for err.
func ClientMessage(err error) string {
	if e, ok := AsExpected(err); ok {
		return e.Message
	}
	return fmt.Sprintf("Unexpected error: %v", err)
}

var (
	ErrMagicMismatch = Expected(http.StatusInternalServerError, "binary artifact is missing the waveless magic prefix")
	ErrTruncated     = Expected(http.StatusInternalServerError, "binary artifact is truncated")
	ErrSchemaDrift   = errors.New("database schema has changed since the artifact was built")
)
