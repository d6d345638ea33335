// Package store defines the shared key-value state that the dashboard and
// the external workflow simulator both read and write.
package store

import (
	"context"
	"time"
)

// ChangeEvent describes a write observed on the shared state.
type ChangeEvent struct {
	Key     string    `json:"key"`
	Value   string    `json:"value,omitempty"`
	Removed bool      `json:"removed,omitempty"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

// ChangeHandler receives change notifications. It runs on a store-owned
// goroutine and must not block.
type ChangeHandler func(ChangeEvent)

// Store is a string-valued key-value store shared between processes.
//
// Reads return ok=false for an absent key. Change notifications are best
// effort: they are delivered asynchronously, may be dropped, and are never
// delivered to the client that made the write. Readers must be prepared to
// discover a change only by reading again.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error

	// Watch registers handler for changes made by other clients. The
	// returned function unregisters it and is safe to call more than once.
	Watch(handler ChangeHandler) (cancel func())

	// Origin identifies this client in the change events it produces.
	Origin() string

	Close() error
}

// Conditional is implemented by stores that can set a key only when it is
// absent in one atomic step.
type Conditional interface {
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)
}

// SetIfAbsent sets key to value only when it is absent and reports whether it
// did. It uses the store's atomic primitive when there is one and falls back
// to a read followed by a write otherwise.
func SetIfAbsent(ctx context.Context, s Store, key, value string) (bool, error) {
	if c, ok := s.(Conditional); ok {
		return c.SetIfAbsent(ctx, key, value)
	}

	_, exists, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}

	if exists {
		return false, nil
	}

	if err := s.Set(ctx, key, value); err != nil {
		return false, err
	}

	return true, nil
}
