package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
)

// MockStore is a mock implementation of store.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)

	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)

	return args.Error(0)
}

func (m *MockStore) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)

	return args.Error(0)
}

func (m *MockStore) Watch(handler store.ChangeHandler) func() {
	args := m.Called(handler)

	if fn, ok := args.Get(0).(func()); ok {
		return fn
	}

	return func() {}
}

func (m *MockStore) Origin() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockStore) Close() error {
	args := m.Called()

	return args.Error(0)
}
