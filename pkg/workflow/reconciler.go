package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/otelhelper"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/telemetry"
)

// Reconcile outcomes reported to the Observer.
const (
	OutcomeUnchanged = "unchanged"
	OutcomeChanged   = "changed"
	OutcomeApplied   = "applied"
	OutcomeError     = "error"
)

// Publisher receives telemetry raised by the reconciler.
type Publisher interface {
	Publish(event models.TelemetryEvent)
}

// SessionOpener opens the assistant session for a candidate. AutoOpen reports
// false when a session is already open.
type SessionOpener interface {
	AutoOpen(candidate string) bool
}

// Observer records reconciliation metrics.
type Observer interface {
	ObserveReconcile(workflow, outcome string, elapsed time.Duration)
	ObserveEffect(workflow string)
}

// Aggregates are the dashboard-wide counters touched by workflow effects.
type Aggregates struct {
	Metrics models.DashboardMetrics  `json:"metrics"`
	Stages  models.StageDistribution `json:"stage_distribution"`
}

// Result describes one reconciliation.
type Result struct {
	Entity        string              `json:"entity"`
	Label         Label               `json:"label"`
	Ready         bool                `json:"ready"`
	Completed     bool                `json:"completed"`
	Override      models.CaseOverride `json:"override"`
	Changed       bool                `json:"changed"`
	EffectApplied bool                `json:"effect_applied"`
	SessionOpened bool                `json:"session_opened"`

	// openFor names the candidate whose session should open once the
	// reconciler lock is released.
	openFor string
}

type tracked struct {
	entity   Entity
	def      Definition
	keys     Keys
	progress int
	override models.CaseOverride
	// atSessionLabel is true while the stored label equals the session label.
	atSessionLabel bool
}

type snapshot struct {
	stage      string
	progress   string
	hasProg    bool
	ready      bool
	completed  bool
	completion string
}

// Reconciler maps shared store state onto per-entity case overrides and
// dashboard aggregates. All calls are serialised; every trigger funnels into
// Reconcile, which is idempotent. Telemetry and session openings are queued
// while the lock is held and delivered after it is released, so subscribers
// may read the reconciler from their handlers.
type Reconciler struct {
	mu         sync.Mutex
	outbox     []models.TelemetryEvent
	store      store.Store
	entities   map[string]*tracked
	order      []string
	aggregates Aggregates
	publisher  Publisher
	sessions   SessionOpener
	observer   Observer
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Reconciler)

func WithPublisher(p Publisher) Option {
	return func(r *Reconciler) { r.publisher = p }
}

func WithSessions(s SessionOpener) Option {
	return func(r *Reconciler) { r.sessions = s }
}

func WithObserver(o Observer) Option {
	return func(r *Reconciler) { r.observer = o }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Reconciler) {
		if t != nil {
			r.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithAggregates seeds the dashboard aggregates.
func WithAggregates(a Aggregates) Option {
	return func(r *Reconciler) { r.aggregates = a.clone() }
}

// NewReconciler tracks entities against s. Entities start at their workflow's
// initial state until the first reconciliation.
func NewReconciler(s store.Store, entities []Entity, opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		store:    s,
		entities: make(map[string]*tracked, len(entities)),
		tracer:   otelhelper.Noop(),
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.logger = r.logger.With("module", "workflow_reconciler")

	for _, e := range entities {
		if _, dup := r.entities[e.Key]; dup {
			return nil, fmt.Errorf("duplicate tracked entity %q", e.Key)
		}

		def, err := e.Definition()
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.Key, err)
		}

		t := &tracked{
			entity:   e,
			def:      def,
			keys:     KeysFor(e.Key, def),
			progress: def.InitialProgress,
		}
		t.override = r.overrideFor(t, def.Resolve(LabelNone, false))

		r.entities[e.Key] = t
		r.order = append(r.order, e.Key)
	}

	return r, nil
}

// Entities returns the tracked entities in configuration order.
func (r *Reconciler) Entities() []Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entity, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entities[key].entity)
	}

	return out
}

// Keys returns the store keys of a tracked entity.
func (r *Reconciler) Keys(entity string) (Keys, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.entities[entity]
	if !ok {
		return Keys{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	return t.keys, nil
}

// Reconcile re-reads the entity's store keys and converges the view state.
// Calling it any number of times for the same store state has the same
// effect as calling it once.
func (r *Reconciler) Reconcile(ctx context.Context, entity string) (Result, error) {
	results, err := r.locked(func() ([]Result, error) {
		t, ok := r.entities[entity]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
		}

		res, err := r.reconcileLocked(ctx, t)

		return []Result{res}, err
	})

	if len(results) == 0 {
		return Result{}, err
	}

	return results[0], err
}

// ReconcileAll reconciles every tracked entity. It stops at the first error.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]Result, error) {
	return r.locked(func() ([]Result, error) {
		results := make([]Result, 0, len(r.order))

		for _, key := range r.order {
			res, err := r.reconcileLocked(ctx, r.entities[key])
			if err != nil {
				return results, err
			}

			results = append(results, res)
		}

		return results, nil
	})
}

// Reset removes the entity's completion key and applied marker and restores
// its initial progress. Workflows that adopt a stored progress also lose the
// stored value, so the initial progress holds on later reconciliations.
// Aggregates already changed by an earlier effect are left as they are; a
// later completion applies the effect again.
func (r *Reconciler) Reset(ctx context.Context, entity string) (Result, error) {
	results, err := r.locked(func() ([]Result, error) {
		t, ok := r.entities[entity]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
		}

		keys := []string{t.keys.Completion, t.keys.Marker}
		if t.def.AdoptStoredProgress {
			keys = append(keys, t.keys.Progress)
		}

		for _, key := range keys {
			if err := r.store.Remove(ctx, key); err != nil {
				return nil, fmt.Errorf("failed to reset %s: %w", entity, err)
			}
		}

		t.progress = t.def.InitialProgress
		t.atSessionLabel = false

		r.logger.Info("Workflow reset", "entity", entity, "workflow", t.def.ID)

		res, err := r.reconcileLocked(ctx, t)

		return []Result{res}, err
	})

	if len(results) == 0 {
		return Result{}, err
	}

	return results[0], err
}

// locked runs fn under the reconciler lock, then publishes the telemetry fn
// queued and performs the session openings its results request.
func (r *Reconciler) locked(fn func() ([]Result, error)) ([]Result, error) {
	r.mu.Lock()
	results, err := fn()
	events := r.outbox
	r.outbox = nil
	r.mu.Unlock()

	for _, event := range events {
		r.publisher.Publish(event)
	}

	for i := range results {
		r.openSession(&results[i])
	}

	return results, err
}

// Overrides returns the current override of every tracked entity.
func (r *Reconciler) Overrides() []models.CaseOverride {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.CaseOverride, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entities[key].override)
	}

	return out
}

// Override returns the current override of one entity.
func (r *Reconciler) Override(entity string) (models.CaseOverride, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.entities[entity]
	if !ok {
		return models.CaseOverride{}, false
	}

	return t.override, true
}

// Aggregates returns a copy of the current dashboard aggregates.
func (r *Reconciler) Aggregates() Aggregates {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.aggregates.clone()
}

// SetAggregates replaces the dashboard aggregates.
func (r *Reconciler) SetAggregates(a Aggregates) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.aggregates = a.clone()
}

func (r *Reconciler) reconcileLocked(ctx context.Context, t *tracked) (Result, error) {
	started := r.now()

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.reconcile",
		attribute.String(otelhelper.EntityKey, t.entity.Key),
		attribute.String(otelhelper.WorkflowIDKey, string(t.def.ID)),
	)
	defer span.End()

	res, err := r.converge(ctx, t)

	outcome := OutcomeUnchanged

	switch {
	case err != nil:
		outcome = OutcomeError

		otelhelper.SetError(span, err, attribute.String(otelhelper.EntityKey, t.entity.Key))
		r.logger.Warn("Reconciliation failed", "entity", t.entity.Key, "error", err)
	case res.EffectApplied:
		outcome = OutcomeApplied
	case res.Changed:
		outcome = OutcomeChanged
	}

	span.SetAttributes(
		attribute.String(otelhelper.StageLabelKey, string(res.Label)),
		attribute.Bool(otelhelper.EffectAppliedKey, res.EffectApplied),
	)

	if r.observer != nil {
		r.observer.ObserveReconcile(string(t.def.ID), outcome, r.now().Sub(started))
	}

	return res, err
}

func (r *Reconciler) converge(ctx context.Context, t *tracked) (Result, error) {
	snap, err := r.read(ctx, t.keys)
	if err != nil {
		return Result{Entity: t.entity.Key}, err
	}

	label := t.def.ParseLabel(snap.stage)
	transition := t.def.Resolve(label, snap.completed)
	progress := r.progressFor(t, label, snap)

	res := Result{
		Entity:    t.entity.Key,
		Label:     label,
		Ready:     snap.ready,
		Completed: snap.completed,
	}

	if snap.completed {
		applied, err := store.SetIfAbsent(ctx, r.store, t.keys.Marker, "true")
		if err != nil {
			return res, fmt.Errorf("failed to mark %s effect applied: %w", t.entity.Key, err)
		}

		if applied {
			r.applyEffect(t)
			res.EffectApplied = true
		}
	}

	t.progress = progress
	next := r.overrideFor(t, transition)
	res.Changed = !next.Equal(t.override)

	if res.Changed {
		r.logger.Debug("Case state changed",
			"entity", t.entity.Key,
			"stage", next.Stage,
			"status", next.Status,
			"progress", next.ProgressPercent,
		)
		r.publish(models.TelemetryEvent{
			Kind:        telemetry.KindWorkflowTransition,
			Message:     fmt.Sprintf("%s moved to %s (%s)", t.entity.EmployeeName, next.Stage, next.DueNext),
			SubjectName: t.entity.EmployeeName,
			Severity:    models.SeverityInfo,
			Attributes: map[string]string{
				"entity":   t.entity.Key,
				"workflow": string(t.def.ID),
				"stage":    string(next.Stage),
				"status":   string(next.Status),
				"progress": strconv.Itoa(next.ProgressPercent),
			},
		})
	}

	t.override = next

	res.openFor = r.sessionRequest(t, label)
	res.Override = t.override

	return res, nil
}

// progressFor derives the live progress. Completion moves the entity to its
// completion progress; a stored progress is adopted while a label is stored;
// a malformed stored progress keeps the last known value.
func (r *Reconciler) progressFor(t *tracked, label Label, snap snapshot) int {
	progress := t.def.InitialProgress
	if snap.completed {
		progress = t.def.CompletionProgress
	}

	if !t.def.AdoptStoredProgress || label == LabelNone || !snap.hasProg {
		return progress
	}

	stored, err := strconv.Atoi(strings.TrimSpace(snap.progress))
	if err != nil || stored < 0 || stored > 100 {
		r.logger.Warn("Ignoring malformed progress",
			"entity", t.entity.Key,
			"value", snap.progress,
		)

		return t.progress
	}

	return stored
}

func (r *Reconciler) read(ctx context.Context, keys Keys) (snapshot, error) {
	var snap snapshot

	var err error

	if snap.stage, _, err = r.store.Get(ctx, keys.Stage); err != nil {
		return snap, err
	}

	if snap.progress, snap.hasProg, err = r.store.Get(ctx, keys.Progress); err != nil {
		return snap, err
	}

	ready, _, err := r.store.Get(ctx, keys.Ready)
	if err != nil {
		return snap, err
	}

	snap.ready = parseFlag(ready)

	if snap.completion, _, err = r.store.Get(ctx, keys.Completion); err != nil {
		return snap, err
	}

	snap.completed = parseFlag(snap.completion)

	return snap, nil
}

func (r *Reconciler) applyEffect(t *tracked) {
	effect := t.def.Effect

	r.aggregates.Metrics = r.aggregates.Metrics.Apply(effect.Metrics)

	for _, stage := range effect.Increments {
		r.aggregates.Stages = r.aggregates.Stages.Increment(stage, 1)
	}

	for _, move := range effect.Moves {
		var moved bool

		r.aggregates.Stages, moved = r.aggregates.Stages.Move(move.From, move.To)
		if !moved {
			r.logger.Warn("Skipped stage move from empty bucket",
				"entity", t.entity.Key,
				"from", move.From,
				"to", move.To,
			)
		}
	}

	r.logger.Info("Workflow effect applied",
		"entity", t.entity.Key,
		"workflow", t.def.ID,
		"active_journeys", r.aggregates.Metrics.ActiveJourneys,
	)

	if r.observer != nil {
		r.observer.ObserveEffect(string(t.def.ID))
	}

	r.publish(models.TelemetryEvent{
		Kind:        effect.Kind,
		Message:     fmt.Sprintf("%s: %s", t.entity.EmployeeName, effect.Message),
		SubjectName: t.entity.EmployeeName,
		Severity:    models.SeveritySuccess,
		Attributes: map[string]string{
			"entity":   t.entity.Key,
			"workflow": string(t.def.ID),
		},
	})
}

// sessionRequest names the candidate whose assistant session should open:
// once each time the entity reaches its session label.
func (r *Reconciler) sessionRequest(t *tracked, label Label) string {
	if t.def.SessionLabel == LabelNone || label != t.def.SessionLabel {
		t.atSessionLabel = false

		return ""
	}

	if t.atSessionLabel {
		return ""
	}

	t.atSessionLabel = true

	return t.entity.EmployeeName
}

func (r *Reconciler) openSession(res *Result) {
	candidate := res.openFor
	res.openFor = ""

	if candidate == "" || r.sessions == nil || !r.sessions.AutoOpen(candidate) {
		return
	}

	res.SessionOpened = true

	if r.publisher != nil {
		r.publisher.Publish(models.TelemetryEvent{
			Kind:        telemetry.KindSessionOpened,
			Message:     fmt.Sprintf("Assistant session opened for %s", candidate),
			SubjectName: candidate,
			Severity:    models.SeverityInfo,
		})
	}
}

func (r *Reconciler) overrideFor(t *tracked, transition Transition) models.CaseOverride {
	o := models.CaseOverride{
		CaseID:          t.entity.CaseID,
		EmployeeName:    t.entity.EmployeeName,
		Stage:           transition.Stage,
		Status:          transition.Status,
		ProgressPercent: t.progress,
		DueNext:         transition.DueNext,
		Role:            t.def.Role,
	}

	if t.def.DueToday {
		y, m, d := r.now().Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, r.now().Location())
		o.DueDate = &today
	}

	return o
}

// publish queues event for delivery once the lock is released.
func (r *Reconciler) publish(event models.TelemetryEvent) {
	if r.publisher != nil {
		r.outbox = append(r.outbox, event)
	}
}

func (a Aggregates) clone() Aggregates {
	return Aggregates{Metrics: a.Metrics, Stages: a.Stages.Clone()}
}

func parseFlag(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))

	return err == nil && v
}
