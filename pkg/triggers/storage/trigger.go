// Package storage provides the trigger that reconciles an entity when one of
// its watched store keys is changed by another client.
package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/protocol"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
)

// DefaultDebounce coalesces bursts of writes to one entity.
const DefaultDebounce = 100 * time.Millisecond

// pending is one armed debounce timer.
type pending struct {
	timer *time.Timer
}

// Trigger watches the shared store and reconciles the owning entity of each
// changed key after a quiet period.
type Trigger struct {
	store    store.Store
	owners   map[string]string
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	unwatch  func()
	timers   map[string]*pending
	callback protocol.TriggerCallback
	wg       sync.WaitGroup
}

// NewTrigger watches keys, a map from entity to the store keys it owns.
func NewTrigger(s store.Store, keys map[string][]string, debounce time.Duration, logger *slog.Logger) (*Trigger, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	owners := make(map[string]string)
	for entity, ks := range keys {
		for _, k := range ks {
			owners[k] = entity
		}
	}

	t := &Trigger{
		store:    s,
		owners:   owners,
		debounce: debounce,
		timers:   make(map[string]*pending),
		logger:   logger.With("module", "storage_trigger", "debounce", debounce),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Trigger) Validate() error {
	if t.store == nil {
		return errors.New("storage trigger store is required")
	}

	if len(t.owners) == 0 {
		return errors.New("storage trigger needs at least one watched key")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return errors.New("storage trigger already started")
	}

	t.ctx, t.cancel = context.WithCancel(ctx)
	t.callback = callback
	t.unwatch = t.store.Watch(t.onChange)

	t.logger.Info("Started StorageTrigger", "keys", len(t.owners))

	return nil
}

func (t *Trigger) onChange(ev store.ChangeEvent) {
	entity, ok := t.owners[ev.Key]
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctx == nil || t.ctx.Err() != nil {
		return
	}

	if p, ok := t.timers[entity]; ok && p.timer.Stop() {
		p.timer.Reset(t.debounce)

		return
	}

	p := &pending{}
	t.timers[entity] = p

	t.wg.Add(1)
	p.timer = time.AfterFunc(t.debounce, func() { t.fire(entity, p) })
}

func (t *Trigger) fire(entity string, p *pending) {
	defer t.wg.Done()

	t.mu.Lock()
	if t.timers[entity] == p {
		delete(t.timers, entity)
	}
	ctx, callback := t.ctx, t.callback
	t.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	if err := callback(ctx, entity, protocol.SourceStorage); err != nil {
		t.logger.Error("Reconciliation from storage change failed", "entity", entity, "error", err)
	}
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()

	if t.unwatch != nil {
		t.unwatch()
		t.unwatch = nil
	}

	if t.cancel != nil {
		t.cancel()
	}

	for entity, p := range t.timers {
		if p.timer.Stop() {
			t.wg.Done()
		}

		delete(t.timers, entity)
	}
	t.mu.Unlock()

	t.logger.Info("Stopping StorageTrigger")

	done := make(chan struct{})

	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
