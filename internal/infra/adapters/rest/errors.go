package rest

import (
	"fmt"
)

// RequestError is returned when the API answers with a status other than
// 200, 201 or 204.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	// Body is the (possibly truncated) response body, useful for diagnostics.
	Body string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("eyeson: API request failed with %d (%s %s)", e.StatusCode, e.Method, e.Path)
}

// NetworkError wraps a transport-level failure. The underlying error is
// available through errors.Unwrap, so context cancellation stays detectable.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("eyeson: request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
