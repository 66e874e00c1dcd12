package fetcher

import (
	"errors"
	"fmt"
)

// ErrTimeout is reported when a batch's shared deadline expires before a
// locator finished downloading.
var ErrTimeout = errors.New("resource fetch timed out")

// ErrTooLarge is reported when a response body exceeds the configured limit.
var ErrTooLarge = errors.New("resource exceeds maximum size")

// ErrNoResponse is reported when a fetch capability returns neither a
// response nor an error.
var ErrNoResponse = errors.New("fetch returned no response")

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	Locator    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.Locator, e.StatusCode)
}

// FetchError wraps a failure of the fetch capability or of reading the body.
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
