package eyeson

import (
	"context"
	"fmt"
	"time"

	"github.com/qrave1/eyeson-go/internal/infra/adapters/rest"
)

// ValidationError reports a missing required argument. No request is sent
// when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("eyeson: %s", e.Message)
}

func required(field, value, message string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: message}
	}
	return nil
}

// APIRequestError is returned for any response status other than 200, 201
// and 204.
type APIRequestError = rest.RequestError

// NetworkError wraps a transport failure.
type NetworkError = rest.NetworkError

// TimeoutError is returned by Room.WaitReady when the room did not become
// ready in time. It matches context.DeadlineExceeded with errors.Is.
type TimeoutError struct {
	AccessKey string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("eyeson: room not ready after %s", e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}
