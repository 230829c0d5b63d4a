package llm

import (
	"errors"
	"fmt"
)

// Providers classify their failures with these wrappers so the gateway can
// pick a retry policy without knowing any SDK.

// TransientError is a connectivity failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// APIError is a definite answer from the model API (bad key, bad request,
// quota). Retrying the same call will not help.
type APIError struct {
	StatusCode int
	err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.err.Error()
	}
	return fmt.Sprintf("status %d: %v", e.StatusCode, e.err)
}

func (e *APIError) Unwrap() error { return e.err }

func NewAPIError(statusCode int, err error) error {
	return &APIError{StatusCode: statusCode, err: err}
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func IsAPI(err error) bool {
	var a *APIError
	return errors.As(err, &a)
}
