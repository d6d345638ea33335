// Package file provides a shared state store kept in a JSON document on disk.
// It has no change notifications, so readers converge by polling only.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
)

// Store implements store.Store on a single JSON file.
type Store struct {
	path   string
	origin string

	mu     sync.Mutex
	closed bool
}

// New creates a store at path. A "file://" prefix is accepted and stripped.
func New(path string) (*Store, error) {
	cleanPath := strings.Replace(path, "file://", "", 1)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Store{path: cleanPath, origin: uuid.NewString()}, nil
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, store.NewError("Get", key, store.ErrClosed)
	}

	data, err := s.load()
	if err != nil {
		return "", false, store.NewError("Get", key, err)
	}

	v, ok := data[key]

	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	return s.update("Set", key, func(data map[string]string) bool {
		data[key] = value

		return true
	})
}

// SetIfAbsent implements store.Conditional. It is atomic within this process
// only.
func (s *Store) SetIfAbsent(_ context.Context, key, value string) (bool, error) {
	set := false

	err := s.update("SetIfAbsent", key, func(data map[string]string) bool {
		if _, exists := data[key]; exists {
			return false
		}

		data[key] = value
		set = true

		return true
	})

	return set, err
}

func (s *Store) Remove(_ context.Context, key string) error {
	return s.update("Remove", key, func(data map[string]string) bool {
		if _, exists := data[key]; !exists {
			return false
		}

		delete(data, key)

		return true
	})
}

// Watch never fires: the file store has no change channel.
func (s *Store) Watch(store.ChangeHandler) func() {
	return func() {}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *Store) update(op, key string, mutate func(map[string]string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.NewError(op, key, store.ErrClosed)
	}

	data, err := s.load()
	if err != nil {
		return store.NewError(op, key, err)
	}

	if !mutate(data) {
		return nil
	}

	if err := s.save(data); err != nil {
		return store.NewError(op, key, err)
	}

	return nil
}

func (s *Store) load() (map[string]string, error) {
	data := make(map[string]string)

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}

	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return data, nil
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}

	return data, nil
}

// save writes through a temporary file and a rename so concurrent readers in
// other processes never see a partial document.
func (s *Store) save(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
