// Package redis provides a shared state store on Redis. Values are plain
// string keys; change notifications are JSON change events published on a
// pub/sub channel next to the write.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
)

const (
	DefaultChannel = "onboarding:state:changes"
	pingTimeout    = 5 * time.Second
)

// Store implements store.Store on a Redis client.
type Store struct {
	client  redis.UniversalClient
	owned   bool
	prefix  string
	channel string
	origin  string
	logger  *slog.Logger
	closed  atomic.Bool

	mu       sync.Mutex
	handlers map[uint64]store.ChangeHandler
	nextID   uint64
	pubsub   *redis.PubSub
	done     chan struct{}
}

type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithChannel overrides the change notification channel.
func WithChannel(channel string) Option {
	return func(s *Store) { s.channel = channel }
}

// WithOrigin fixes the client origin instead of a random one.
func WithOrigin(origin string) Option {
	return func(s *Store) { s.origin = origin }
}

// New connects to the Redis server at url (redis://[:password@]host:port/db).
func New(ctx context.Context, logger *slog.Logger, url string, opts ...Option) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := NewWithClient(client, logger, opts...)
	s.owned = true

	s.logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return s, nil
}

// NewWithClient wraps an existing client. The caller keeps ownership of it.
func NewWithClient(client redis.UniversalClient, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		client:   client,
		channel:  DefaultChannel,
		handlers: make(map[uint64]store.ChangeHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.origin == "" {
		s.origin = uuid.NewString()
	}

	s.logger = logger.With("module", "redis_store", "origin", s.origin)

	return s
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, store.NewError("Get", key, store.ErrClosed)
	}

	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, store.NewError("Get", key, err)
	}

	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return store.NewError("Set", key, store.ErrClosed)
	}

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return store.NewError("Set", key, err)
	}

	s.announce(ctx, store.ChangeEvent{Key: key, Value: value})

	return nil
}

// SetIfAbsent implements store.Conditional with SETNX.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if s.closed.Load() {
		return false, store.NewError("SetIfAbsent", key, store.ErrClosed)
	}

	set, err := s.client.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		return false, store.NewError("SetIfAbsent", key, err)
	}

	if set {
		s.announce(ctx, store.ChangeEvent{Key: key, Value: value})
	}

	return set, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return store.NewError("Remove", key, store.ErrClosed)
	}

	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return store.NewError("Remove", key, err)
	}

	if n > 0 {
		s.announce(ctx, store.ChangeEvent{Key: key, Removed: true})
	}

	return nil
}

// announce publishes a change event. A failed publish only costs a missed
// notification, so it is logged and not returned.
func (s *Store) announce(ctx context.Context, ev store.ChangeEvent) {
	ev.Origin = s.origin
	ev.At = time.Now().UTC()

	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to encode change event", "key", ev.Key, "error", err)

		return
	}

	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change event", "key", ev.Key, "error", err)
	}
}

func (s *Store) Watch(handler store.ChangeHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return func() {}
	}

	if s.pubsub == nil {
		if err := s.subscribeLocked(); err != nil {
			s.logger.Error("Failed to subscribe to change channel, relying on polling", "error", err)

			return func() {}
		}
	}

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler

	var once sync.Once

	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) subscribeLocked() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return err
	}

	s.pubsub = pubsub
	s.done = make(chan struct{})

	go s.consume(pubsub.Channel(), s.done)

	return nil
}

func (s *Store) consume(messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	for msg := range messages {
		var ev store.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			s.logger.Warn("Ignoring malformed change event", "error", err)

			continue
		}

		if ev.Origin == s.origin {
			continue
		}

		s.mu.Lock()
		handlers := make([]store.ChangeHandler, 0, len(s.handlers))
		for _, h := range s.handlers {
			handlers = append(handlers, h)
		}
		s.mu.Unlock()

		for _, h := range handlers {
			h(ev)
		}
	}
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	pubsub, done := s.pubsub, s.done
	s.pubsub = nil
	s.handlers = make(map[uint64]store.ChangeHandler)
	s.mu.Unlock()

	var errs []error

	if pubsub != nil {
		errs = append(errs, pubsub.Close())
		<-done
	}

	if s.owned {
		errs = append(errs, s.client.Close())
	}

	return errors.Join(errs...)
}
