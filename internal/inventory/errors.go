package inventory

import (
	"errors"
	"fmt"
)

// ErrInventory marks every error raised by this package's client.
var ErrInventory = errors.New("inventory")

// AuthError is returned for 401 and 403 responses.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Authentication failed with status %d", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return ErrInventory }

// NotFoundError is returned for 404 responses.
type NotFoundError struct{}

func (e *NotFoundError) Error() string { return "Inventory resource not found" }

func (e *NotFoundError) Unwrap() error { return ErrInventory }

// APIError is any other error response, or a body that could not be parsed.
type APIError struct {
	StatusCode int
	Msg        string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Msg)
	}
	return e.Msg
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInventory}
	}
	return []error{ErrInventory, e.Err}
}

// NetworkError is a timeout or connectivity failure that outlived retries.
type NetworkError struct {
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return "Request timeout: " + e.Err.Error()
	}
	return "Network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() []error { return []error{ErrInventory, e.Err} }

// transientError is a 502, 503 or 504 answer. It is retried and, once the
// budget is spent, reported as an APIError.
type transientError struct {
	StatusCode int
	Msg        string
}

func (e *transientError) Error() string { return e.Msg }
