// Package dashboard composes one generation of the onboarding dashboard:
// base data, workflow reconciliation, the three reconciliation triggers and
// the telemetry subscriptions, with a start/stop lifecycle.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/casesource"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/filter"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/protocol"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/telemetry"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/triggers/poll"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/triggers/signal"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/triggers/storage"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/workflow"
)

const (
	MaxNotifications = 10
	MaxActivity      = 10
)

var (
	ErrNotStarted     = errors.New("dashboard view not started")
	ErrAlreadyStarted = errors.New("dashboard view already started")
	ErrStopped        = errors.New("dashboard view stopped")
)

// Observer records metrics for the view. Implemented by the metrics package.
type Observer interface {
	workflow.Observer
	ObserveTrigger(source string)
}

// Config wires a view to its collaborators. Store, Source, Bus and
// Dispatcher are shared between view generations.
type Config struct {
	Store      store.Store
	Source     casesource.Source
	Bus        *telemetry.Bus
	Dispatcher *signal.Dispatcher
	Entities   []workflow.Entity
	Observer   Observer
	Tracer     trace.Tracer
	Logger     *slog.Logger

	// Debounce delays storage-triggered reconciliation. Zero uses 100ms.
	Debounce time.Duration
	// Limit caps the rendered rows. Zero uses 20.
	Limit int
	Now   func() time.Time
}

// Session is the assistant session shown for one candidate.
type Session struct {
	Open      bool      `json:"open"`
	Candidate string    `json:"candidate,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Auto      bool      `json:"auto"`
	OpenedAt  time.Time `json:"opened_at,omitzero"`
}

// Visible is the rendered slice of the journey list.
type Visible struct {
	Cases []models.OnboardingCase `json:"cases"`
	Shown int                     `json:"shown"`
	Total int                     `json:"total"`
}

// State is a point-in-time copy of everything the presentation layer shows.
type State struct {
	Metrics           models.DashboardMetrics    `json:"metrics"`
	StageDistribution models.StageDistribution   `json:"stage_distribution"`
	DepartmentMetrics []models.DepartmentMetrics `json:"department_metrics"`
	Notifications     []models.Notification      `json:"notifications"`
	Telemetry         []models.TelemetryEvent    `json:"telemetry"`
	Activity          []models.AgentActivity     `json:"activity"`
	Session           Session                    `json:"session"`
	Query             string                     `json:"query"`
	Filters           models.DashboardFilters    `json:"filters"`
	ActiveFilters     int                        `json:"active_filters"`
	Overrides         []models.CaseOverride      `json:"overrides"`
}

type lifecycle int

const (
	created lifecycle = iota
	running
	stopped
)

// View is one dashboard generation. Reconciliation, notifications and
// telemetry arrive on trigger goroutines; accessors are safe for concurrent
// use.
type View struct {
	cfg        Config
	logger     *slog.Logger
	reconciler *workflow.Reconciler

	// immutable after Start
	cases       []models.OnboardingCase
	departments []models.DepartmentMetrics
	activity    []models.AgentActivity

	mu            sync.Mutex
	state         lifecycle
	query         string
	filters       models.DashboardFilters
	notifications []models.Notification
	telemetry     []models.TelemetryEvent
	session       Session
	triggers      []protocol.Trigger
	unsubscribe   []func()
}

func NewView(cfg Config) (*View, error) {
	if cfg.Store == nil {
		return nil, errors.New("dashboard view store is required")
	}

	if cfg.Source == nil {
		return nil, errors.New("dashboard view case source is required")
	}

	if cfg.Bus == nil {
		cfg.Bus = telemetry.NewBus()
	}

	if cfg.Dispatcher == nil {
		cfg.Dispatcher = signal.NewDispatcher()
	}

	if len(cfg.Entities) == 0 {
		cfg.Entities = workflow.DefaultEntities()
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Limit == 0 {
		cfg.Limit = filter.DefaultLimit
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &View{
		cfg:    cfg,
		logger: cfg.Logger.With("module", "dashboard_view"),
	}, nil
}

// Start loads the base data, reconciles every tracked entity once and
// starts the triggers.
func (v *View) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.state != created {
		v.mu.Unlock()

		return ErrAlreadyStarted
	}
	v.mu.Unlock()

	v.load()

	opts := []workflow.Option{
		workflow.WithPublisher(v.cfg.Bus),
		workflow.WithSessions(v),
		workflow.WithLogger(v.cfg.Logger),
		workflow.WithTracer(v.cfg.Tracer),
		workflow.WithClock(v.cfg.Now),
		workflow.WithAggregates(workflow.Aggregates{
			Metrics: v.cfg.Source.Metrics(),
			Stages:  v.cfg.Source.StageDistribution(),
		}),
	}
	if v.cfg.Observer != nil {
		opts = append(opts, workflow.WithObserver(v.cfg.Observer))
	}

	reconciler, err := workflow.NewReconciler(v.cfg.Store, v.cfg.Entities, opts...)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}

	v.reconciler = reconciler

	triggers, err := v.buildTriggers()
	if err != nil {
		return err
	}

	unsubscribe := []func(){
		v.cfg.Bus.Subscribe(v.onTelemetry),
		v.cfg.Bus.SubscribeToNotifications(v.onNotification),
	}

	if _, err := reconciler.ReconcileAll(ctx); err != nil {
		v.logger.Warn("Initial reconciliation failed, polling will retry", "error", err)
	}

	started := make([]protocol.Trigger, 0, len(triggers))

	for _, t := range triggers {
		if err := t.Start(ctx, v.reconcile); err != nil {
			stopAll(ctx, started)

			for _, fn := range unsubscribe {
				fn()
			}

			return fmt.Errorf("failed to start trigger: %w", err)
		}

		started = append(started, t)
	}

	v.mu.Lock()
	v.state = running
	v.triggers = started
	v.unsubscribe = unsubscribe
	v.mu.Unlock()

	v.logger.Info("Dashboard view started", "entities", len(v.cfg.Entities), "cases", len(v.cases))

	return nil
}

func (v *View) load() {
	cases := v.cfg.Source.GenerateCases()

	activity := make([]models.AgentActivity, 0, 2*5)
	for _, c := range cases[:min(5, len(cases))] {
		recent := v.cfg.Source.AgentActivity(c.ID)
		activity = append(activity, recent[:min(2, len(recent))]...)
	}

	slices.SortStableFunc(activity, func(a, b models.AgentActivity) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	notifications := v.cfg.Source.GenerateNotifications()

	v.cases = cases
	v.departments = v.cfg.Source.DepartmentMetrics()
	v.activity = activity[:min(MaxActivity, len(activity))]

	v.mu.Lock()
	v.notifications = notifications[:min(MaxNotifications, len(notifications))]
	v.mu.Unlock()
}

func (v *View) buildTriggers() ([]protocol.Trigger, error) {
	keys := make([]string, 0, len(v.cfg.Entities))
	watched := make(map[string][]string, len(v.cfg.Entities))
	intervals := make(map[string]time.Duration, len(v.cfg.Entities))

	for _, e := range v.cfg.Entities {
		k, err := v.reconciler.Keys(e.Key)
		if err != nil {
			return nil, err
		}

		keys = append(keys, e.Key)
		watched[e.Key] = k.Watched()
		intervals[e.Key] = e.Interval()
	}

	signals, err := signal.NewTrigger(v.cfg.Dispatcher, keys, workflow.UpdateSignal, v.cfg.Logger)
	if err != nil {
		return nil, err
	}

	changes, err := storage.NewTrigger(v.cfg.Store, watched, v.cfg.Debounce, v.cfg.Logger)
	if err != nil {
		return nil, err
	}

	poller, err := poll.NewTrigger(intervals, v.cfg.Logger)
	if err != nil {
		return nil, err
	}

	return []protocol.Trigger{signals, changes, poller}, nil
}

// reconcile is the single entry point of every trigger.
func (v *View) reconcile(ctx context.Context, entity, source string) error {
	if v.cfg.Observer != nil {
		v.cfg.Observer.ObserveTrigger(source)
	}

	res, err := v.reconciler.Reconcile(ctx, entity)
	if err != nil {
		return err
	}

	if res.EffectApplied || res.SessionOpened {
		v.logger.Info("Reconciled entity",
			"entity", entity,
			"source", source,
			"effect_applied", res.EffectApplied,
			"session_opened", res.SessionOpened,
		)
	}

	return nil
}

// Stop stops every trigger, waiting for running reconciliations, and drops
// the telemetry subscriptions. It is safe to call more than once.
func (v *View) Stop(ctx context.Context) error {
	v.mu.Lock()
	if v.state != running {
		v.state = stopped
		v.mu.Unlock()

		return nil
	}

	v.state = stopped
	triggers := v.triggers
	unsubscribe := v.unsubscribe
	v.triggers, v.unsubscribe = nil, nil
	v.mu.Unlock()

	err := stopAll(ctx, triggers)

	for _, fn := range unsubscribe {
		fn()
	}

	v.logger.Info("Dashboard view stopped")

	return err
}

func stopAll(ctx context.Context, triggers []protocol.Trigger) error {
	var errs []error

	for _, t := range triggers {
		if err := t.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Running reports whether the view has started and not yet stopped.
func (v *View) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.state == running
}

// Reconcile runs one reconciliation outside the triggers.
func (v *View) Reconcile(ctx context.Context, entity string) (workflow.Result, error) {
	if err := v.ready(); err != nil {
		return workflow.Result{}, err
	}

	if v.cfg.Observer != nil {
		v.cfg.Observer.ObserveTrigger(protocol.SourceManual)
	}

	return v.reconciler.Reconcile(ctx, entity)
}

func (v *View) ready() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case created:
		return ErrNotStarted
	case stopped:
		return ErrStopped
	default:
		return nil
	}
}

func (v *View) onTelemetry(events []models.TelemetryEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.telemetry = events
}

func (v *View) onNotification(n models.Notification) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.notifications = append([]models.Notification{n}, v.notifications[:min(MaxNotifications-1, len(v.notifications))]...)
}

// SetQuery replaces the search text.
func (v *View) SetQuery(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.query = query
}

// ToggleFilter flips one filter value.
func (v *View) ToggleFilter(category filter.Category, value string) (models.DashboardFilters, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	next, err := filter.Toggle(v.filters, category, value)
	if err != nil {
		return v.filters, err
	}

	v.filters = next

	return next, nil
}

// ClearFilters empties every filter category and the search text.
func (v *View) ClearFilters() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.filters = filter.Clear()
	v.query = ""
}

// Visible returns the rendered rows with the live case overrides applied.
func (v *View) Visible() Visible {
	v.mu.Lock()
	query := v.query
	v.mu.Unlock()

	return v.VisibleFor(query)
}

// VisibleFor renders the rows for query under the current filters without
// changing the view's search text.
func (v *View) VisibleFor(query string) Visible {
	v.mu.Lock()
	filters := v.filters
	v.mu.Unlock()

	var overrides []models.CaseOverride
	if v.reconciler != nil {
		overrides = v.reconciler.Overrides()
	}

	all := filter.DeriveVisible(v.cases, query, filters, overrides)
	shown := filter.Limit(all, v.cfg.Limit)

	return Visible{Cases: shown, Shown: len(shown), Total: len(all)}
}

// Urgency classifies the due date of every visible case.
func (v *View) Urgency(cases []models.OnboardingCase) map[string]models.Urgency {
	now := v.cfg.Now()
	out := make(map[string]models.Urgency, len(cases))

	for _, c := range cases {
		out[c.ID] = c.DueUrgency(now)
	}

	return out
}

// Subscribe forwards telemetry batches to the presentation layer.
func (v *View) Subscribe(handler telemetry.Handler) func() {
	return v.cfg.Bus.Subscribe(handler)
}

// SubscribeToNotifications forwards notifications to the presentation layer.
func (v *View) SubscribeToNotifications(handler telemetry.NotificationHandler) func() {
	return v.cfg.Bus.SubscribeToNotifications(handler)
}

// MarkNotificationRead flags one notification as read.
func (v *View) MarkNotificationRead(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.notifications {
		if v.notifications[i].ID == id {
			next := slices.Clone(v.notifications)
			next[i].Read = true
			v.notifications = next

			return true
		}
	}

	return false
}

// State returns a copy of the view's current state.
func (v *View) State() State {
	v.mu.Lock()
	s := State{
		DepartmentMetrics: slices.Clone(v.departments),
		Notifications:     slices.Clone(v.notifications),
		Telemetry:         slices.Clone(v.telemetry),
		Activity:          slices.Clone(v.activity),
		Session:           v.session,
		Query:             v.query,
		Filters:           v.filters,
		ActiveFilters:     v.filters.Active(),
	}
	v.mu.Unlock()

	if v.reconciler != nil {
		agg := v.reconciler.Aggregates()
		s.Metrics = agg.Metrics
		s.StageDistribution = agg.Stages
		s.Overrides = v.reconciler.Overrides()
	}

	return s
}

// OpenSession opens the assistant session for candidate at stage. A tracked
// candidate's completion markers are cleared so that the next genuine
// completion applies its effect again.
func (v *View) OpenSession(ctx context.Context, candidate, stage string) (Session, error) {
	if err := v.ready(); err != nil {
		return Session{}, err
	}

	v.mu.Lock()
	v.session = Session{Open: true, Candidate: candidate, Stage: stage, OpenedAt: v.cfg.Now()}
	session := v.session
	v.mu.Unlock()

	for _, e := range v.cfg.Entities {
		if e.EmployeeName != candidate {
			continue
		}

		if _, err := v.reconciler.Reset(ctx, e.Key); err != nil {
			return session, fmt.Errorf("failed to reset %s: %w", e.Key, err)
		}
	}

	v.cfg.Bus.Publish(models.TelemetryEvent{
		Kind:        telemetry.KindSessionOpened,
		Message:     fmt.Sprintf("Assistant session opened for %s at %s", candidate, stage),
		SubjectName: candidate,
		Severity:    models.SeverityInfo,
	})

	return session, nil
}

// AutoOpen opens the session for candidate unless one is already open.
func (v *View) AutoOpen(candidate string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session.Open || v.state == stopped {
		return false
	}

	stage := ""

	for _, e := range v.cfg.Entities {
		if e.EmployeeName == candidate {
			if def, err := e.Definition(); err == nil {
				stage = string(def.SessionLabel)
			}
		}
	}

	v.session = Session{Open: true, Candidate: candidate, Stage: stage, Auto: true, OpenedAt: v.cfg.Now()}

	v.logger.Info("Assistant session opened automatically", "candidate", candidate, "stage", stage)

	return true
}

// CloseSession closes the assistant session.
func (v *View) CloseSession() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.session = Session{}
}

// Session returns the current assistant session.
func (v *View) Session() Session {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.session
}

// Dispatcher returns the update signal dispatcher the view listens on.
func (v *View) Dispatcher() *signal.Dispatcher {
	return v.cfg.Dispatcher
}
