package signal

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/protocol"
)

// SignalName maps an entity to the name of its update signal.
type SignalName func(entity string) string

// Trigger reconciles an entity each time its update signal is emitted.
type Trigger struct {
	dispatcher *Dispatcher
	entities   []string
	name       SignalName
	logger     *slog.Logger

	mu      sync.Mutex
	cancels []func()
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewTrigger(dispatcher *Dispatcher, entities []string, name SignalName, logger *slog.Logger) (*Trigger, error) {
	t := &Trigger{
		dispatcher: dispatcher,
		entities:   entities,
		name:       name,
		logger:     logger.With("module", "signal_trigger"),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Trigger) Validate() error {
	if t.dispatcher == nil {
		return errors.New("signal trigger dispatcher is required")
	}

	if t.name == nil {
		return errors.New("signal trigger signal name is required")
	}

	if len(t.entities) == 0 {
		return errors.New("signal trigger needs at least one entity")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return errors.New("signal trigger already started")
	}

	t.ctx, t.cancel = context.WithCancel(ctx)

	for _, entity := range t.entities {
		signal := t.name(entity)
		t.cancels = append(t.cancels, t.dispatcher.Listen(signal, func() { t.fire(callback, entity) }))
		t.logger.Debug("Listening for update signal", "signal", signal)
	}

	t.logger.Info("Started SignalTrigger", "entities", len(t.entities))

	return nil
}

func (t *Trigger) fire(callback protocol.TriggerCallback, entity string) {
	t.mu.Lock()
	ctx := t.ctx
	if ctx == nil || ctx.Err() != nil {
		t.mu.Unlock()

		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()

	if err := callback(ctx, entity, protocol.SourceSignal); err != nil {
		t.logger.Error("Reconciliation from update signal failed", "entity", entity, "error", err)
	}
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()

	for _, cancel := range t.cancels {
		cancel()
	}

	t.cancels = nil

	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()

	t.logger.Info("Stopping SignalTrigger")

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
