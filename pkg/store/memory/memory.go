// Package memory provides an in-process shared state store. Several clients
// share one Backend; each client only hears about writes made by the others.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
)

const defaultQueueSize = 64

// Backend holds the shared data and the registered watchers.
type Backend struct {
	mu        sync.RWMutex
	data      map[string]string
	watchers  map[uint64]*watcher
	nextID    uint64
	queueSize int
	notify    atomic.Bool
	dropped   atomic.Int64
}

type Option func(*Backend)

// WithQueueSize bounds the per-watcher notification queue. Notifications that
// do not fit are dropped.
func WithQueueSize(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithoutNotifications starts the backend with change notifications disabled.
func WithoutNotifications() Option {
	return func(b *Backend) {
		b.notify.Store(false)
	}
}

func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		data:      make(map[string]string),
		watchers:  make(map[uint64]*watcher),
		queueSize: defaultQueueSize,
	}
	b.notify.Store(true)

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// SetNotifications turns change delivery on or off. Writes made while it is
// off are never announced.
func (b *Backend) SetNotifications(enabled bool) {
	b.notify.Store(enabled)
}

// Dropped returns how many notifications were discarded because a watcher's
// queue was full.
func (b *Backend) Dropped() int64 {
	return b.dropped.Load()
}

// Client returns a store bound to origin. An empty origin gets a random one.
func (b *Backend) Client(origin string) *Store {
	if origin == "" {
		origin = uuid.NewString()
	}

	return &Store{backend: b, origin: origin}
}

// New returns a client of a fresh backend.
func New(origin string, opts ...Option) *Store {
	return NewBackend(opts...).Client(origin)
}

func (b *Backend) publish(ev store.ChangeEvent) {
	if !b.notify.Load() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, w := range b.watchers {
		if w.origin == ev.Origin {
			continue
		}

		select {
		case w.queue <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Backend) addWatcher(origin string, handler store.ChangeHandler) func() {
	w := &watcher{
		origin:  origin,
		handler: handler,
		queue:   make(chan store.ChangeEvent, b.queueSize),
		stop:    make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = w
	b.mu.Unlock()

	go w.run()

	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()

		w.once.Do(func() { close(w.stop) })
	}
}

type watcher struct {
	origin  string
	handler store.ChangeHandler
	queue   chan store.ChangeEvent
	stop    chan struct{}
	once    sync.Once
}

func (w *watcher) run() {
	for {
		select {
		case <-w.stop:
			return
		case ev := <-w.queue:
			select {
			case <-w.stop:
				return
			default:
			}

			w.handler(ev)
		}
	}
}

// Store is one client of a Backend.
type Store struct {
	backend *Backend
	origin  string
	closed  atomic.Bool

	mu      sync.Mutex
	cancels []func()
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, store.NewError("Get", key, store.ErrClosed)
	}

	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	v, ok := s.backend.data[key]

	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	if s.closed.Load() {
		return store.NewError("Set", key, store.ErrClosed)
	}

	s.backend.mu.Lock()
	s.backend.data[key] = value
	s.backend.mu.Unlock()

	s.backend.publish(store.ChangeEvent{Key: key, Value: value, Origin: s.origin, At: time.Now()})

	return nil
}

// SetIfAbsent implements store.Conditional.
func (s *Store) SetIfAbsent(_ context.Context, key, value string) (bool, error) {
	if s.closed.Load() {
		return false, store.NewError("SetIfAbsent", key, store.ErrClosed)
	}

	s.backend.mu.Lock()
	if _, exists := s.backend.data[key]; exists {
		s.backend.mu.Unlock()

		return false, nil
	}
	s.backend.data[key] = value
	s.backend.mu.Unlock()

	s.backend.publish(store.ChangeEvent{Key: key, Value: value, Origin: s.origin, At: time.Now()})

	return true, nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	if s.closed.Load() {
		return store.NewError("Remove", key, store.ErrClosed)
	}

	s.backend.mu.Lock()
	_, existed := s.backend.data[key]
	delete(s.backend.data, key)
	s.backend.mu.Unlock()

	if existed {
		s.backend.publish(store.ChangeEvent{Key: key, Removed: true, Origin: s.origin, At: time.Now()})
	}

	return nil
}

func (s *Store) Watch(handler store.ChangeHandler) func() {
	if s.closed.Load() {
		return func() {}
	}

	cancel := s.backend.addWatcher(s.origin, handler)

	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()

	return cancel
}

// Close stops this client's watchers. The backend and the other clients stay
// usable.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	return nil
}
