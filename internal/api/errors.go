package api

import (
	"errors"
	"fmt"
)

// NetworkError is a transport failure or a 5xx from the backend. Callers show
// it as retryable.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a 4xx answer carrying the server's message.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
}

// ValidationError is raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MalformedDataError marks corrupt stored or received data. It is logged and
// replaced by a safe default, never shown to the user.
type MalformedDataError struct {
	Source string
	Err    error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Source, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
