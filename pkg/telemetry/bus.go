// Package telemetry provides the in-process publish/subscribe bus that streams
// agent telemetry and user-facing notifications to the presentation layer.
package telemetry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

const (
	DefaultHistorySize      = 50
	DefaultNotificationSize = 10
)

// Handler receives the most recent telemetry events, newest first, each time
// an event is published.
type Handler func(events []models.TelemetryEvent)

// NotificationHandler receives each notification as it is raised.
type NotificationHandler func(notification models.Notification)

// Deliveries counts handler invocations. Implemented by the metrics package.
type Deliveries interface {
	ObserveDelivery(kind string)
}

type subscription[H any] struct {
	handler H
	active  atomic.Bool
}

// Bus is a synchronous publish/subscribe channel with bounded history.
//
// Publish delivers to every subscriber on the caller's goroutine, in
// registration order, and then records the event. Deliveries of one kind
// are serialised, so each batch a handler sees contains every event
// published before it. Handlers must not publish on the same bus.
// Unsubscribing is idempotent and may happen from inside a handler; a
// handler is never called once its unsubscribe has returned on the
// delivering goroutine.
type Bus struct {
	publishMu         sync.Mutex
	notifyMu          sync.Mutex
	mu                sync.Mutex
	subscribers       []*subscription[Handler]
	notifySubscribers []*subscription[NotificationHandler]
	history           []models.TelemetryEvent
	notifications     []models.Notification
	historySize       int
	notificationSize  int
	deliveries        Deliveries
	now               func() time.Time
}

type Option func(*Bus)

// WithHistorySize bounds the retained telemetry events.
func WithHistorySize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.historySize = n
		}
	}
}

// WithNotificationSize bounds the retained notifications.
func WithNotificationSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.notificationSize = n
		}
	}
}

// WithDeliveries records handler invocations.
func WithDeliveries(d Deliveries) Option {
	return func(b *Bus) { b.deliveries = d }
}

// WithClock overrides the timestamp source for events without one.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		historySize:      DefaultHistorySize,
		notificationSize: DefaultNotificationSize,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe registers a telemetry handler and returns its unsubscribe func.
func (b *Bus) Subscribe(handler Handler) func() {
	sub := &subscription[Handler]{handler: handler}
	sub.active.Store(true)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	return func() {
		if !sub.active.Swap(false) {
			return
		}

		b.mu.Lock()
		b.subscribers = remove(b.subscribers, sub)
		b.mu.Unlock()
	}
}

// SubscribeToNotifications registers a notification handler and returns its
// unsubscribe func.
func (b *Bus) SubscribeToNotifications(handler NotificationHandler) func() {
	sub := &subscription[NotificationHandler]{handler: handler}
	sub.active.Store(true)

	b.mu.Lock()
	b.notifySubscribers = append(b.notifySubscribers, sub)
	b.mu.Unlock()

	return func() {
		if !sub.active.Swap(false) {
			return
		}

		b.mu.Lock()
		b.notifySubscribers = remove(b.notifySubscribers, sub)
		b.mu.Unlock()
	}
}

// Publish delivers event to the telemetry subscribers, records it, and
// raises the notification derived from it, if any.
func (b *Bus) Publish(event models.TelemetryEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}

	if event.Severity == "" {
		event.Severity = models.SeverityInfo
	}

	b.deliver(event)

	if notification, ok := Derive(event); ok {
		b.Notify(notification)
	}
}

func (b *Bus) deliver(event models.TelemetryEvent) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	next := prepend(b.history, event, b.historySize)
	subscribers := append([]*subscription[Handler](nil), b.subscribers...)
	b.mu.Unlock()

	for _, sub := range subscribers {
		if !sub.active.Load() {
			continue
		}

		sub.handler(clone(next))
		b.observe("telemetry")
	}

	b.mu.Lock()
	b.history = next
	b.mu.Unlock()
}

// Notify delivers notification to the notification subscribers and records it.
func (b *Bus) Notify(notification models.Notification) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	if notification.Timestamp.IsZero() {
		notification.Timestamp = b.now()
	}

	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	subscribers := append([]*subscription[NotificationHandler](nil), b.notifySubscribers...)
	b.mu.Unlock()

	for _, sub := range subscribers {
		if !sub.active.Load() {
			continue
		}

		sub.handler(notification)
		b.observe("notification")
	}

	b.mu.Lock()
	b.notifications = prepend(b.notifications, notification, b.notificationSize)
	b.mu.Unlock()
}

// Seed preloads notifications, newest first, without delivering them.
func (b *Bus) Seed(notifications []models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(notifications) - 1; i >= 0; i-- {
		b.notifications = prepend(b.notifications, notifications[i], b.notificationSize)
	}
}

// History returns the retained telemetry events, newest first.
func (b *Bus) History() []models.TelemetryEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	return clone(b.history)
}

// Notifications returns the retained notifications, newest first.
func (b *Bus) Notifications() []models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	return clone(b.notifications)
}

// SubscriberCount returns the number of live subscriptions of both kinds.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers) + len(b.notifySubscribers)
}

func (b *Bus) observe(kind string) {
	if b.deliveries != nil {
		b.deliveries.ObserveDelivery(kind)
	}
}

// Derive turns a telemetry event into a notification. Warnings, critical
// events and completed workflow steps notify; routine agent activity does not.
func Derive(event models.TelemetryEvent) (models.Notification, bool) {
	switch {
	case event.Severity == models.SeverityWarning, event.Severity == models.SeverityCritical:
	case notifyingKinds[event.Kind]:
	default:
		return models.Notification{}, false
	}

	title := kindTitles[event.Kind]
	if title == "" {
		title = fmt.Sprintf("Agent update: %s", event.Kind)
	}

	return models.Notification{
		ID:          uuid.NewString(),
		Kind:        event.Kind,
		Title:       title,
		Message:     event.Message,
		Timestamp:   event.Timestamp,
		SubjectName: event.SubjectName,
		Severity:    event.Severity,
	}, true
}

func prepend[T any](items []T, item T, limit int) []T {
	out := make([]T, 0, min(len(items)+1, limit))
	out = append(out, item)

	for _, it := range items {
		if len(out) >= limit {
			break
		}

		out = append(out, it)
	}

	return out
}

func remove[T any](subs []*subscription[T], target *subscription[T]) []*subscription[T] {
	out := make([]*subscription[T], 0, len(subs))
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}

	return out
}

func clone[T any](items []T) []T {
	return append([]T(nil), items...)
}
