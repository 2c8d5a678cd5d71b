// Package fetcher holds what is shared by landing page fetcher implementations.
package fetcher

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrTimeout  = errors.New("fetch timed out")
	ErrCanceled = errors.New("fetch canceled")
	ErrNetwork  = errors.New("fetch network failure")
)

// Error describes a failed fetch of one URL.
type Error struct {
	URL  string
	Kind error
	Err  error
}

// NewError builds an Error.
func NewError(url string, kind, err error) *Error {
	return &Error{URL: url, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %v: %v", e.URL, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
