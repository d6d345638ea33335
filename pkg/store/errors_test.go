package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := NewError("Get", "jordanLeeStage", ErrClosed)

	assert.Equal(t, "store Get failed for key jordanLeeStage: store closed", err.Error())
	assert.True(t, errors.Is(err, ErrClosed))

	var storeErr *Error
	assert.True(t, errors.As(error(err), &storeErr))
	assert.Equal(t, "Get", storeErr.Op)

	assert.Equal(t, "store Watch failed: store closed", NewError("Watch", "", ErrClosed).Error())
}

func TestError_Is(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("failed to reconcile: %w", NewError("Set", "jordanLeeMetricsUpdated", cause))

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &Error{Op: "Set"})
	assert.ErrorIs(t, err, &Error{Op: "Set", Key: "jordanLeeMetricsUpdated"})
	assert.NotErrorIs(t, err, &Error{Op: "Set", Key: "alexMorganProgress"})
	assert.NotErrorIs(t, err, &Error{Op: "Get"})
	assert.NotErrorIs(t, err, ErrClosed)
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "redis", Scheme("redis://localhost:6379/0"))
	assert.Equal(t, "file", Scheme("file:///tmp/state.json"))
	assert.Equal(t, "", Scheme("./state.json"))
}
