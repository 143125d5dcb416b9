package sdl

import (
	"errors"
	"fmt"
	"time"
)

// ErrSDL marks every error raised by this package.
var ErrSDL = errors.New("sdl")

// QueryError reports a failed PowerQuery request or an unusable response.
type QueryError struct {
	Msg        string
	StatusCode int
	Details    string
	Err        error
}

func (e *QueryError) Error() string {
	msg := e.Msg
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Details != "" {
		msg += ". Details: " + e.Details
	}
	return msg
}

func (e *QueryError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSDL, e.Err}
	}
	return []error{ErrSDL}
}

// TimeoutError reports a query that did not finish within the poll budget.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Query timed out after %.1f seconds. "+
		"This usually means the time range was too long or the query was too complex. "+
		"Try reducing the time range (e.g., use 24 hours instead of multiple days) "+
		"or simplifying the query (e.g., add more specific filters).", e.After.Seconds())
}

func (e *TimeoutError) Unwrap() error { return ErrSDL }
