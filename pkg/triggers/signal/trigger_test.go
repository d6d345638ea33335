package signal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/log"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/protocol"
)

func updateSignal(entity string) string { return entity + "Update" }

func TestNewTrigger_Validation(t *testing.T) {
	_, err := NewTrigger(nil, []string{"a"}, updateSignal, log.Discard())
	require.Error(t, err)

	_, err = NewTrigger(NewDispatcher(), nil, updateSignal, log.Discard())
	require.Error(t, err)

	_, err = NewTrigger(NewDispatcher(), []string{"a"}, nil, log.Discard())
	require.Error(t, err)
}

func TestTrigger_ReconcilesOnSignal(t *testing.T) {
	d := NewDispatcher()
	trigger, err := NewTrigger(d, []string{"alexMorgan", "jordanLee"}, updateSignal, log.Discard())
	require.NoError(t, err)

	var fired []string

	err = trigger.Start(context.Background(), func(_ context.Context, entity, source string) error {
		assert.Equal(t, protocol.SourceSignal, source)
		fired = append(fired, entity)

		return errors.New("ignored")
	})
	require.NoError(t, err)

	d.Emit("jordanLeeUpdate")
	d.Emit("alexMorganUpdate")
	d.Emit("jordanLeeUpdate")

	assert.Equal(t, []string{"jordanLee", "alexMorgan", "jordanLee"}, fired)

	require.NoError(t, trigger.Stop(context.Background()))

	d.Emit("jordanLeeUpdate")
	assert.Len(t, fired, 3)
	assert.Equal(t, 0, d.Listeners("jordanLeeUpdate"))
}

func TestTrigger_StartTwice(t *testing.T) {
	trigger, err := NewTrigger(NewDispatcher(), []string{"a"}, updateSignal, log.Discard())
	require.NoError(t, err)

	noop := func(context.Context, string, string) error { return nil }

	require.NoError(t, trigger.Start(context.Background(), noop))
	require.Error(t, trigger.Start(context.Background(), noop))
	require.NoError(t, trigger.Stop(context.Background()))
}
