package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")

	// ErrUnsupportedURL indicates a store URL with an unknown scheme.
	ErrUnsupportedURL = errors.New("unsupported store url")
)

// Error wraps a backend failure with the operation and key involved.
type Error struct {
	Op  string // Get, Set, Remove, Watch
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("store %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the wrapped error, or another *Error with the same operation
// and, when the target names one, the same key.
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return other.Op == e.Op && (other.Key == "" || other.Key == e.Key)
	}

	return errors.Is(e.Err, target)
}

// NewError creates a new store error with context.
func NewError(op, key string, err error) *Error {
	return &Error{Op: op, Key: key, Err: err}
}

// Scheme returns the scheme part of a store URL, or "" when there is none.
func Scheme(url string) string {
	scheme, _, found := strings.Cut(url, "://")
	if !found {
		return ""
	}

	return scheme
}
