package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/log"
)

func TestNavigator_StopsPreviousGenerationFirst(t *testing.T) {
	h := newHarness(t)
	nav := NewNavigator(log.Discard())
	ctx := context.Background()

	factory := func() (*View, error) { return NewView(h.config()) }

	first, err := nav.Show(ctx, factory)
	require.NoError(t, err)
	assert.True(t, first.Running())

	second, err := nav.Show(ctx, factory)
	require.NoError(t, err)

	assert.False(t, first.Running())
	assert.True(t, second.Running())
	assert.Same(t, second, nav.Current())
	assert.Equal(t, 1, h.dispatcher.Listeners("alexMorganUpdate"))
	assert.Equal(t, 2, h.bus.SubscriberCount())

	require.NoError(t, nav.Close(ctx))
	assert.Nil(t, nav.Current())
	assert.False(t, second.Running())
	assert.Equal(t, 0, h.bus.SubscriberCount())
}

func TestNavigator_FactoryError(t *testing.T) {
	nav := NewNavigator(log.Discard())

	_, err := nav.Show(context.Background(), func() (*View, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	assert.Nil(t, nav.Current())
	require.NoError(t, nav.Close(context.Background()))
}
