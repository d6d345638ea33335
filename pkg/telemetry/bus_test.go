package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

func event(msg string) models.TelemetryEvent {
	return models.TelemetryEvent{Kind: KindAgentAction, Message: msg}
}

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(func([]models.TelemetryEvent) { order = append(order, "first") })
	bus.Subscribe(func([]models.TelemetryEvent) { order = append(order, "second") })
	bus.Subscribe(func([]models.TelemetryEvent) { order = append(order, "third") })

	bus.Publish(event("documents verified"))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_BatchIsNewestFirst(t *testing.T) {
	bus := NewBus(WithHistorySize(3))

	var last []models.TelemetryEvent
	bus.Subscribe(func(events []models.TelemetryEvent) { last = events })

	for i := range 5 {
		bus.Publish(event(fmt.Sprintf("event-%d", i)))
	}

	require.Len(t, last, 3)
	assert.Equal(t, "event-4", last[0].Message)
	assert.Equal(t, "event-2", last[2].Message)

	history := bus.History()
	assert.Equal(t, last, history)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, models.SeverityInfo, history[0].Severity)
}

func TestBus_UnsubscribeDuringDelivery(t *testing.T) {
	bus := NewBus()

	var calls []string
	var unsubscribeSecond func()

	bus.Subscribe(func([]models.TelemetryEvent) {
		calls = append(calls, "first")
		unsubscribeSecond()
	})
	unsubscribeSecond = bus.Subscribe(func([]models.TelemetryEvent) {
		calls = append(calls, "second")
	})

	bus.Publish(event("one"))
	bus.Publish(event("two"))

	assert.Equal(t, []string{"first", "first"}, calls)
}

func TestBus_UnsubscribeSelfAndIdempotent(t *testing.T) {
	bus := NewBus()

	count := 0
	var unsubscribe func()
	unsubscribe = bus.Subscribe(func([]models.TelemetryEvent) {
		count++
		unsubscribe()
		unsubscribe()
	})

	bus.Publish(event("one"))
	bus.Publish(event("two"))
	unsubscribe()

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBus_NotificationsBounded(t *testing.T) {
	bus := NewBus()

	var received []models.Notification
	unsubscribe := bus.SubscribeToNotifications(func(n models.Notification) {
		received = append(received, n)
	})
	defer unsubscribe()

	for i := range 12 {
		bus.Notify(models.Notification{Title: fmt.Sprintf("n-%d", i)})
	}

	assert.Len(t, received, 12)

	retained := bus.Notifications()
	require.Len(t, retained, DefaultNotificationSize)
	assert.Equal(t, "n-11", retained[0].Title)
	assert.Equal(t, "n-2", retained[9].Title)
}

func TestBus_DerivesNotifications(t *testing.T) {
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	bus := NewBus(WithClock(func() time.Time { return at }))

	var received []models.Notification
	bus.SubscribeToNotifications(func(n models.Notification) { received = append(received, n) })

	bus.Publish(models.TelemetryEvent{Kind: KindAgentAction, Message: "routine"})
	bus.Publish(models.TelemetryEvent{Kind: KindBGCCompleted, Message: "clear", SubjectName: "Jordan Lee"})
	bus.Publish(models.TelemetryEvent{Kind: KindAgentAction, Message: "stalled", Severity: models.SeverityWarning})

	require.Len(t, received, 2)
	assert.Equal(t, "Background check completed", received[0].Title)
	assert.Equal(t, "Jordan Lee", received[0].SubjectName)
	assert.Equal(t, at, received[0].Timestamp)
	assert.Equal(t, "Agent update: agent.action", received[1].Title)
}

func TestBus_Seed(t *testing.T) {
	bus := NewBus()

	bus.Seed([]models.Notification{{Title: "newest"}, {Title: "older"}})
	bus.Notify(models.Notification{Title: "live"})

	titles := []string{}
	for _, n := range bus.Notifications() {
		titles = append(titles, n.Title)
	}

	assert.Equal(t, []string{"live", "newest", "older"}, titles)
}

type countingDeliveries map[string]int

func (c countingDeliveries) ObserveDelivery(kind string) { c[kind]++ }

func TestBus_ObservesDeliveries(t *testing.T) {
	counts := countingDeliveries{}
	bus := NewBus(WithDeliveries(counts))

	bus.Subscribe(func([]models.TelemetryEvent) {})
	bus.Subscribe(func([]models.TelemetryEvent) {})
	bus.SubscribeToNotifications(func(models.Notification) {})

	bus.Publish(models.TelemetryEvent{Kind: KindJourneyStarted, Message: "started"})

	assert.Equal(t, 2, counts["telemetry"])
	assert.Equal(t, 1, counts["notification"])
}

func TestBus_ConcurrentPublishersSeeCompleteBatches(t *testing.T) {
	bus := NewBus()

	entered := make(chan struct{})
	release := make(chan struct{})

	var (
		mu    sync.Mutex
		last  []models.TelemetryEvent
		first sync.Once
	)

	bus.Subscribe(func(events []models.TelemetryEvent) {
		first.Do(func() {
			close(entered)
			<-release
		})

		mu.Lock()
		last = events
		mu.Unlock()
	})

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()
		bus.Publish(event("A"))
	}()

	<-entered

	go func() {
		defer wg.Done()
		bus.Publish(event("B"))
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	history := bus.History()
	require.Len(t, history, 2)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, last, 2)
	assert.Equal(t, "B", last[0].Message)
	assert.Equal(t, history, last)
}
