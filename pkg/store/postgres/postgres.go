// Package postgres provides a shared state store on PostgreSQL. Writes are
// announced with pg_notify and observed through a pq.Listener.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/persistence/sqlbase"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
)

const (
	DefaultChannel = "onboarding_state_changes"

	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
)

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS shared_state (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	db          *sql.DB
	databaseURL string
	channel     string
	origin      string
	logger      *slog.Logger
	closed      atomic.Bool

	mu       sync.Mutex
	handlers map[uint64]store.ChangeHandler
	nextID   uint64
	listener *pq.Listener
	done     chan struct{}
}

type Option func(*Store)

// WithOrigin fixes the client origin instead of a random one.
func WithOrigin(origin string) Option {
	return func(s *Store) { s.origin = origin }
}

// WithChannel overrides the NOTIFY channel.
func WithChannel(channel string) Option {
	return func(s *Store) { s.channel = channel }
}

// New connects to databaseURL and runs the schema migrations.
func New(ctx context.Context, logger *slog.Logger, databaseURL string, opts ...Option) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:          database,
		databaseURL: databaseURL,
		channel:     DefaultChannel,
		handlers:    make(map[uint64]store.ChangeHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.origin == "" {
		s.origin = uuid.NewString()
	}

	s.logger = logger.With("module", "postgres_store", "origin", s.origin)

	migrationManager := sqlbase.NewMigrationManager(s.logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run shared state migrations: %w", err)
	}

	s.logger.InfoContext(ctx, "Shared state PostgreSQL store initialized successfully")

	return s, nil
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, store.NewError("Get", key, store.ErrClosed)
	}

	var value string

	err := s.db.QueryRowContext(ctx, "SELECT value FROM shared_state WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, store.NewError("Get", key, err)
	}

	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return store.NewError("Set", key, store.ErrClosed)
	}

	query := `
		INSERT INTO shared_state (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
			return err
		}

		return s.notify(ctx, tx, store.ChangeEvent{Key: key, Value: value})
	})
	if err != nil {
		return store.NewError("Set", key, err)
	}

	return nil
}

// SetIfAbsent implements store.Conditional.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if s.closed.Load() {
		return false, store.NewError("SetIfAbsent", key, store.ErrClosed)
	}

	var inserted bool

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO shared_state (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
			key, value)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}

		inserted = rows > 0
		if !inserted {
			return nil
		}

		return s.notify(ctx, tx, store.ChangeEvent{Key: key, Value: value})
	})
	if err != nil {
		return false, store.NewError("SetIfAbsent", key, err)
	}

	return inserted, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return store.NewError("Remove", key, store.ErrClosed)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM shared_state WHERE key = $1", key)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil || rows == 0 {
			return err
		}

		return s.notify(ctx, tx, store.ChangeEvent{Key: key, Removed: true})
	})
	if err != nil {
		return store.NewError("Remove", key, err)
	}

	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	return tx.Commit()
}

// notify queues a NOTIFY that PostgreSQL delivers when tx commits.
func (s *Store) notify(ctx context.Context, tx *sql.Tx, ev store.ChangeEvent) error {
	ev.Origin = s.origin
	ev.At = time.Now().UTC()

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", s.channel, string(payload))

	return err
}

func (s *Store) Watch(handler store.ChangeHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return func() {}
	}

	if s.listener == nil {
		if err := s.listenLocked(); err != nil {
			s.logger.Error("Failed to listen for changes, relying on polling", "error", err)

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

func (s *Store) listenLocked() error {
	listener := pq.NewListener(s.databaseURL, minReconnectInterval, maxReconnectInterval,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				s.logger.Warn("Change listener connection event", "event", event, "error", err)
			}
		})

	if err := listener.Listen(s.channel); err != nil {
		_ = listener.Close()

		return err
	}

	s.listener = listener
	s.done = make(chan struct{})

	go s.consume(listener.Notify, s.done)

	return nil
}

func (s *Store) consume(notifications <-chan *pq.Notification, done chan struct{}) {
	defer close(done)

	for n := range notifications {
		// nil after a reconnect: notifications may have been lost.
		if n == nil {
			s.logger.Warn("Change listener reconnected, notifications may have been missed")

			continue
		}

		var ev store.ChangeEvent
		if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
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
	listener, done := s.listener, s.done
	s.listener = nil
	s.handlers = make(map[uint64]store.ChangeHandler)
	s.mu.Unlock()

	var errs []error

	if listener != nil {
		errs = append(errs, listener.Close())
		<-done
	}

	errs = append(errs, s.db.Close())

	return errors.Join(errs...)
}
