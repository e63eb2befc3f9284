package api

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes request failures.
type ErrorKind string

const (
	// KindAuthRejected indicates the backend answered 401.
	KindAuthRejected ErrorKind = "AUTH_REJECTED"

	// KindRequestFailed covers every other failure.
	KindRequestFailed ErrorKind = "REQUEST_FAILED"
)

// Error is returned by Client for every failed request.
type Error struct {
	Kind ErrorKind

	// Status is the HTTP status, 0 for transport failures.
	Status int

	// Message is the server-provided message, if any.
	Message string

	Method string
	Path   string

	// Err is the underlying transport or decode error (optional).
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %s", e.Method, e.Path, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAuthRejected reports whether err is (or wraps) a 401 response.
func IsAuthRejected(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindAuthRejected
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOr returns the server message carried by err, or fallback when the
// server sent none.
func MessageOr(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
