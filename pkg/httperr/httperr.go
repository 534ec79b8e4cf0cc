// Package httperr defines the uniform error contract every route of the
// gateway speaks: a status code, a human-readable status message, and an
// optional structured payload preserving upstream detail.
package httperr

import (
	"errors"
	"net/http"
)

// Error wraps any failure (validation, upstream response, transport) with the
// outward-facing triple. It is what route handlers serialize on every failure.
type Error struct {
	StatusCode    int
	StatusMessage string
	// Data preserves the decoded upstream payload, when there was one.
	Data any
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusMessage != "" {
		return e.StatusMessage
	}
	return http.StatusText(e.StatusCode)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given status code and message.
func New(status int, msg string) *Error {
	return &Error{StatusCode: status, StatusMessage: msg}
}

// Wrap attaches a status code and message to an existing error. If err is
// already an *Error its status and payload are preserved.
func Wrap(err error, status int, msg string) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			StatusCode:    existing.StatusCode,
			StatusMessage: msg,
			Data:          existing.Data,
			Err:           err,
		}
	}
	return &Error{StatusCode: status, StatusMessage: msg, Err: err}
}

// Unauthenticated builds a 401 error. An empty msg falls back to a generic one.
func Unauthenticated(msg string) *Error {
	if msg == "" {
		msg = "authentication required"
	}
	return New(http.StatusUnauthorized, msg)
}

// BadRequest builds a 400 error for missing or malformed caller input.
func BadRequest(msg string) *Error {
	return New(http.StatusBadRequest, msg)
}

// Status extracts the status code from any error, defaulting to 500.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode >= 100 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// IsUnauthenticated reports whether err carries a 401 status.
func IsUnauthenticated(err error) bool {
	return Status(err) == http.StatusUnauthorized
}
