// Package simulator plays the external workflow agents: it walks each
// tracked entity through its workflow by writing the shared store and
// announcing every step.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/telemetry"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/workflow"
)

// Announcer tells the dashboard about a step. Implemented by
// eventbus.Publisher.
type Announcer interface {
	PublishSignal(ctx context.Context, entity, name string) error
	PublishTelemetry(ctx context.Context, event models.TelemetryEvent) error
}

// Write is one store mutation. An empty Value removes the key.
type Write struct {
	Suffix string
	Value  string
}

// Step is one agent action of a workflow script.
type Step struct {
	Agent  string
	Action string
	Kind   string
	Writes []Write
}

var scripts = map[workflow.ID][]Step{
	workflow.CandidateChat: {
		{
			Agent:  "Onboarding Assistant",
			Action: "Completed candidate chat",
			Writes: []Write{{Suffix: "ChatCompleted", Value: "true"}},
		},
		{
			Agent:  "Document Agent",
			Action: "Requested identity documents",
			Kind:   telemetry.KindDocumentsRequested,
			Writes: []Write{
				{Suffix: "Stage", Value: string(workflow.LabelFileUploadPending)},
				{Suffix: "Progress", Value: "10"},
			},
		},
		{
			Agent:  "Compliance Agent",
			Action: "Pulling background check reports",
			Writes: []Write{
				{Suffix: "Stage", Value: string(workflow.LabelPullingBGCReports)},
				{Suffix: "Progress", Value: "20"},
				{Suffix: "Ready", Value: "true"},
			},
		},
	},
	workflow.BackgroundCheck: {
		{
			Agent:  "Compliance Agent",
			Action: "Collected background check documents",
		},
		{
			Agent:  "Compliance Agent",
			Action: "Background check cleared",
			Writes: []Write{{Suffix: "BGCCompleted", Value: "true"}},
		},
	},
}

// Script returns the steps of a workflow.
func Script(id workflow.ID) []Step {
	return scripts[id]
}

// Simulator runs the workflow scripts against the shared store.
type Simulator struct {
	store     store.Store
	announcer Announcer
	delay     time.Duration
	logger    *slog.Logger
}

func New(s store.Store, announcer Announcer, delay time.Duration, logger *slog.Logger) *Simulator {
	return &Simulator{
		store:     s,
		announcer: announcer,
		delay:     delay,
		logger:    logger.With("module", "simulator"),
	}
}

// Run walks every entity through its script concurrently and returns when
// all scripts finished or ctx is done.
func (s *Simulator) Run(ctx context.Context, entities []workflow.Entity) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, e := range entities {
		g.Go(func() error { return s.RunEntity(ctx, e) })
	}

	return g.Wait()
}

// RunEntity walks one entity through its script.
func (s *Simulator) RunEntity(ctx context.Context, e workflow.Entity) error {
	steps := Script(e.Workflow)
	if len(steps) == 0 {
		return fmt.Errorf("%w: %s", workflow.ErrUnknownWorkflow, e.Workflow)
	}

	for i, step := range steps {
		if err := s.wait(ctx); err != nil {
			return err
		}

		if err := s.apply(ctx, e, step); err != nil {
			return fmt.Errorf("step %d of %s: %w", i+1, e.Key, err)
		}
	}

	s.logger.Info("Workflow script finished", "entity", e.Key, "steps", len(steps))

	return nil
}

func (s *Simulator) apply(ctx context.Context, e workflow.Entity, step Step) error {
	for _, w := range step.Writes {
		key := e.Key + w.Suffix

		var err error
		if w.Value == "" {
			err = s.store.Remove(ctx, key)
		} else {
			err = s.store.Set(ctx, key, w.Value)
		}

		if err != nil {
			return err
		}
	}

	s.logger.Info("Workflow step", "entity", e.Key, "agent", step.Agent, "action", step.Action)

	if s.announcer == nil {
		return nil
	}

	if err := s.announcer.PublishSignal(ctx, e.Key, workflow.UpdateSignal(e.Key)); err != nil {
		s.logger.Warn("Failed to announce step", "entity", e.Key, "error", err)
	}

	kind := step.Kind
	if kind == "" {
		kind = telemetry.KindAgentAction
	}

	event := models.TelemetryEvent{
		Kind:        kind,
		Message:     fmt.Sprintf("%s: %s", step.Agent, step.Action),
		SubjectName: e.EmployeeName,
		Severity:    models.SeverityInfo,
		Attributes:  map[string]string{"agent": step.Agent, "entity": e.Key},
	}

	if err := s.announcer.PublishTelemetry(ctx, event); err != nil {
		s.logger.Warn("Failed to publish step telemetry", "entity", e.Key, "error", err)
	}

	return nil
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset removes every key the entity's script writes, plus the applied
// marker, returning it to its initial state.
func (s *Simulator) Reset(ctx context.Context, e workflow.Entity) error {
	def, err := e.Definition()
	if err != nil {
		return err
	}

	keys := workflow.KeysFor(e.Key, def)
	for _, key := range []string{keys.Stage, keys.Progress, keys.Ready, keys.Completion, keys.Marker} {
		if err := s.store.Remove(ctx, key); err != nil {
			return err
		}
	}

	return nil
}
