package backend

import (
	"errors"
	"fmt"
)

// Error is a non-2xx response from the recognition service.
type Error struct {
	// HTTPStatus is the HTTP status code.
	HTTPStatus int `json:"-"`

	// Message is the service's error message, or the raw body.
	Message string `json:"error"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s (http=%d)", e.Message, e.HTTPStatus)
}

// IsUnavailable reports whether the service is overloaded or down.
func (e *Error) IsUnavailable() bool {
	return e.HTTPStatus == 429 || e.HTTPStatus == 502 || e.HTTPStatus == 503 || e.HTTPStatus == 504
}

// IsRejected reports whether the service refused the input itself.
func (e *Error) IsRejected() bool {
	return e.HTTPStatus == 400 || e.HTTPStatus == 413 || e.HTTPStatus == 415 || e.HTTPStatus == 422
}

// AsError extracts *Error from an error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
