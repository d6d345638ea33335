package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
)

type recorder struct {
	mu     sync.Mutex
	events []store.ChangeEvent
}

func (r *recorder) handle(ev store.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []store.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]store.ChangeEvent(nil), r.events...)
}

func TestStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := New("dashboard")

	_, ok, err := s.Get(ctx, "jordanLeeBGCCompleted")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "jordanLeeBGCCompleted", "true"))

	v, ok, err := s.Get(ctx, "jordanLeeBGCCompleted")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	require.NoError(t, s.Remove(ctx, "jordanLeeBGCCompleted"))
	_, ok, _ = s.Get(ctx, "jordanLeeBGCCompleted")
	assert.False(t, ok)
}

func TestStore_NotifiesOtherClientsOnly(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend()
	dashboard := backend.Client("dashboard")
	simulator := backend.Client("simulator")

	var seen recorder
	cancel := dashboard.Watch(seen.handle)
	defer cancel()

	require.NoError(t, dashboard.Set(ctx, "alexMorganStage", "ignored"))
	require.NoError(t, simulator.Set(ctx, "alexMorganStage", "Pulling BGC Reports"))
	require.NoError(t, simulator.Remove(ctx, "alexMorganStage"))

	assert.Eventually(t, func() bool { return len(seen.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	events := seen.snapshot()
	assert.Equal(t, "simulator", events[0].Origin)
	assert.Equal(t, "Pulling BGC Reports", events[0].Value)
	assert.True(t, events[1].Removed)
}

func TestStore_NotificationsDisabled(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend(WithoutNotifications())
	dashboard := backend.Client("dashboard")
	simulator := backend.Client("simulator")

	var seen recorder
	dashboard.Watch(seen.handle)

	require.NoError(t, simulator.Set(ctx, "alexMorganProgress", "25"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, seen.snapshot())

	// the value is still readable
	v, ok, err := dashboard.Get(ctx, "alexMorganProgress")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "25", v)

	backend.SetNotifications(true)
	require.NoError(t, simulator.Set(ctx, "alexMorganProgress", "30"))
	assert.Eventually(t, func() bool { return len(seen.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestStore_DropsWhenQueueFull(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend(WithQueueSize(1))
	dashboard := backend.Client("dashboard")
	simulator := backend.Client("simulator")

	release := make(chan struct{})
	dashboard.Watch(func(store.ChangeEvent) { <-release })

	for range 10 {
		require.NoError(t, simulator.Set(ctx, "k", "v"))
	}
	close(release)

	assert.Positive(t, backend.Dropped())
}

func TestStore_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := New("dashboard")

	set, err := store.SetIfAbsent(ctx, s, "jordanLeeMetricsUpdated", "true")
	require.NoError(t, err)
	assert.True(t, set)

	set, err = store.SetIfAbsent(ctx, s, "jordanLeeMetricsUpdated", "true")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestStore_Close(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend()
	dashboard := backend.Client("dashboard")
	simulator := backend.Client("simulator")

	var seen recorder
	dashboard.Watch(seen.handle)

	require.NoError(t, dashboard.Close())
	require.NoError(t, dashboard.Close())

	_, _, err := dashboard.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrClosed)

	require.NoError(t, simulator.Set(ctx, "k", "v"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, seen.snapshot())
}
