// Package poll provides the periodic trigger that lets every entity converge
// even when no change notification arrives.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/protocol"
)

// Trigger reconciles each entity on its own interval.
type Trigger struct {
	intervals map[string]time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTrigger polls each entity in intervals at its interval.
func NewTrigger(intervals map[string]time.Duration, logger *slog.Logger) (*Trigger, error) {
	t := &Trigger{
		intervals: intervals,
		logger:    logger.With("module", "poll_trigger"),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Trigger) Validate() error {
	if len(t.intervals) == 0 {
		return errors.New("poll trigger needs at least one entity")
	}

	for entity, interval := range t.intervals {
		if interval <= 0 {
			return fmt.Errorf("poll trigger interval for %s must be positive", entity)
		}
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		return errors.New("poll trigger already started")
	}

	t.ctx, t.cancel = context.WithCancel(ctx)

	logger := cronLogger{t.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	for entity, interval := range t.intervals {
		id, err := c.AddFunc("@every "+interval.String(), func() { t.run(callback, entity) })
		if err != nil {
			t.cancel()

			return fmt.Errorf("failed to add poll job for %s: %w", entity, err)
		}

		t.logger.Info("Adding poll job", "id", id, "entity", entity, "interval", interval)
	}

	t.cron = c
	t.cron.Start()

	return nil
}

func (t *Trigger) run(callback protocol.TriggerCallback, entity string) {
	if t.ctx.Err() != nil {
		return
	}

	if err := callback(t.ctx, entity, protocol.SourcePoll); err != nil {
		t.logger.Error("Reconciliation from poll failed", "entity", entity, "error", err)
	}
}

// Stop stops scheduling and waits for running jobs to finish.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	c := t.cron

	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()

	t.logger.Info("Stopping PollTrigger")

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
