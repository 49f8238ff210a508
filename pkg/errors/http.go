package errors

import (
	"errors"
	"net/http"
)

// HTTPError is an error that knows which HTTP status it should be answered with.
type HTTPError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError returns an HTTPError whose error code equals the status code.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Code:       statusCode,
		Message:    message,
	}
}

var (
	ErrBadRequest          = NewHTTPError(http.StatusBadRequest, "Bad request")
	ErrUnauthorized        = NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	ErrTooManyRequests     = NewHTTPError(http.StatusTooManyRequests, "Too many requests")
	ErrServiceUnavailable  = NewHTTPError(http.StatusServiceUnavailable, "Service unavailable")
	ErrInternalServerError = NewHTTPError(http.StatusInternalServerError, "Internal server error")
)

// AsHTTPError extracts an *HTTPError from err's chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
