package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/casesource"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/filter"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/log"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store/memory"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/telemetry"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/triggers/signal"
)

type harness struct {
	backend    *memory.Backend
	simulator  *memory.Store
	dashboard  *memory.Store
	bus        *telemetry.Bus
	dispatcher *signal.Dispatcher
	source     *casesource.Generator
}

func newHarness(t *testing.T, opts ...memory.Option) *harness {
	t.Helper()

	backend := memory.NewBackend(opts...)
	h := &harness{
		backend:    backend,
		simulator:  backend.Client("simulator"),
		dashboard:  backend.Client("dashboard"),
		bus:        telemetry.NewBus(),
		dispatcher: signal.NewDispatcher(),
		source:     casesource.NewGenerator(casesource.WithCount(30)),
	}

	t.Cleanup(func() {
		_ = h.simulator.Close()
		_ = h.dashboard.Close()
	})

	return h
}

func (h *harness) config() Config {
	return Config{
		Store:      h.dashboard,
		Source:     h.source,
		Bus:        h.bus,
		Dispatcher: h.dispatcher,
		Logger:     log.Discard(),
		Debounce:   20 * time.Millisecond,
	}
}

func (h *harness) start(t *testing.T) *View {
	t.Helper()

	v, err := NewView(h.config())
	require.NoError(t, err)
	require.NoError(t, v.Start(context.Background()))

	t.Cleanup(func() { _ = v.Stop(context.Background()) })

	return v
}

func (h *harness) set(t *testing.T, key, value string) {
	t.Helper()
	require.NoError(t, h.simulator.Set(context.Background(), key, value))
}

func TestNewView_RequiresCollaborators(t *testing.T) {
	_, err := NewView(Config{Source: casesource.NewGenerator()})
	require.Error(t, err)

	_, err = NewView(Config{Store: memory.New("x")})
	require.Error(t, err)
}

func TestView_StartLoadsBaseData(t *testing.T) {
	h := newHarness(t)
	v := h.start(t)

	visible := v.Visible()
	assert.Equal(t, 20, visible.Shown)
	assert.Equal(t, 30, visible.Total)

	alex := visible.Cases[0]
	assert.Equal(t, "Alex Morgan", alex.EmployeeName)
	assert.Equal(t, "Senior Software Engineer", alex.Role)
	assert.Equal(t, models.StatusPending, alex.Status)
	assert.Equal(t, "Today", alex.DueNext)

	jordan := visible.Cases[1]
	assert.Equal(t, models.StageBGCPending, jordan.Stage)
	assert.Equal(t, 5, jordan.ProgressPercent)

	state := v.State()
	assert.Equal(t, h.source.Metrics(), state.Metrics)
	assert.Len(t, state.DepartmentMetrics, len(models.Departments))
	assert.LessOrEqual(t, len(state.Activity), MaxActivity)
	assert.Len(t, state.Notifications, len(h.source.GenerateNotifications()))
	assert.Len(t, state.Overrides, 2)
}

func TestView_UpdateSignalReconcilesImmediately(t *testing.T) {
	h := newHarness(t, memory.WithoutNotifications())
	v := h.start(t)

	before := v.State().Metrics

	h.set(t, "jordanLeeBGCCompleted", "true")
	h.dispatcher.Emit("jordanLeeUpdate")

	after := v.State()
	assert.Equal(t, before.ActiveJourneys+1, after.Metrics.ActiveJourneys)
	assert.Equal(t, before.BGVPending-1, after.Metrics.BGVPending)

	jordan := v.Visible().Cases[1]
	assert.Equal(t, 15, jordan.ProgressPercent)
	assert.Equal(t, models.StageWeek1, jordan.Stage)

	h.dispatcher.Emit("jordanLeeUpdate")
	assert.Equal(t, after.Metrics, v.State().Metrics)
}

func TestView_StorageChangeReconciles(t *testing.T) {
	h := newHarness(t)
	v := h.start(t)

	h.set(t, "alexMorganStage", "File Upload Pending")
	h.set(t, "alexMorganProgress", "10")

	assert.Eventually(t, func() bool {
		return v.Visible().Cases[0].ProgressPercent == 10
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "File Upload Pending", v.Visible().Cases[0].DueNext)
}

func TestView_PollingConvergesWithoutNotifications(t *testing.T) {
	h := newHarness(t, memory.WithoutNotifications())
	v := h.start(t)

	h.set(t, "jordanLeeBGCCompleted", "true")

	assert.Eventually(t, func() bool {
		return v.Visible().Cases[1].ProgressPercent == 15
	}, 3*time.Second, 50*time.Millisecond)
}

func TestView_AutoOpensSessionAtSessionLabel(t *testing.T) {
	h := newHarness(t)
	v := h.start(t)

	h.set(t, "alexMorganStage", "Pulling BGC Reports")

	assert.Eventually(t, func() bool { return v.Session().Open }, time.Second, 10*time.Millisecond)

	session := v.Session()
	assert.True(t, session.Auto)
	assert.Equal(t, "Alex Morgan", session.Candidate)
	assert.Equal(t, "Pulling BGC Reports", session.Stage)
}

func TestView_OpenSessionResetsTrackedCandidate(t *testing.T) {
	h := newHarness(t, memory.WithoutNotifications())
	v := h.start(t)
	ctx := context.Background()

	h.set(t, "jordanLeeBGCCompleted", "true")
	_, err := v.Reconcile(ctx, "jordanLee")
	require.NoError(t, err)

	session, err := v.OpenSession(ctx, "Jordan Lee", "BGC Pending")
	require.NoError(t, err)
	assert.True(t, session.Open)
	assert.False(t, session.Auto)

	_, ok, err := h.simulator.Get(ctx, "jordanLeeBGCCompleted")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = h.simulator.Get(ctx, "jordanLeeMetricsUpdated")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 5, v.Visible().Cases[1].ProgressPercent)

	v.CloseSession()
	assert.False(t, v.Session().Open)
}

func TestView_AutoOpenSkippedWhileSessionOpen(t *testing.T) {
	h := newHarness(t, memory.WithoutNotifications())
	v := h.start(t)
	ctx := context.Background()

	_, err := v.OpenSession(ctx, "Casey Kim", "Week 1")
	require.NoError(t, err)

	h.set(t, "alexMorganStage", "Pulling BGC Reports")

	res, err := v.Reconcile(ctx, "alexMorgan")
	require.NoError(t, err)
	assert.False(t, res.SessionOpened)
	assert.Equal(t, "Casey Kim", v.Session().Candidate)
}

func TestView_SubscriberReadsViewDuringTransition(t *testing.T) {
	h := newHarness(t, memory.WithoutNotifications())
	v := h.start(t)

	progress := make(chan int, 16)

	unsubscribe := v.Subscribe(func([]models.TelemetryEvent) {
		progress <- v.Visible().Cases[1].ProgressPercent
		_ = v.State()
	})
	defer unsubscribe()

	h.set(t, "jordanLeeBGCCompleted", "true")
	h.set(t, "alexMorganStage", "Pulling BGC Reports")

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, err := v.Reconcile(context.Background(), "jordanLee")
		assert.NoError(t, err)

		_, err = v.Reconcile(context.Background(), "alexMorgan")
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile blocked by a telemetry subscriber")
	}

	require.NotEmpty(t, progress)
	assert.Equal(t, 15, <-progress)
	assert.True(t, v.Session().Open)

	require.NoError(t, v.Stop(context.Background()))
}

func TestView_NotificationsCappedNewestFirst(t *testing.T) {
	h := newHarness(t)
	v := h.start(t)

	for i := range 15 {
		h.bus.Publish(models.TelemetryEvent{
			Kind:     telemetry.KindException,
			Message:  fmt.Sprintf("exception %d", i),
			Severity: models.SeverityWarning,
		})
	}

	notifications := v.State().Notifications
	require.Len(t, notifications, MaxNotifications)
	assert.Equal(t, "exception 14", notifications[0].Message)
	assert.Equal(t, "exception 5", notifications[9].Message)

	assert.True(t, v.MarkNotificationRead(notifications[0].ID))
	assert.True(t, v.State().Notifications[0].Read)
	assert.False(t, v.MarkNotificationRead("missing"))
}

func TestView_TelemetryStream(t *testing.T) {
	h := newHarness(t)
	v := h.start(t)

	var batches [][]models.TelemetryEvent

	unsubscribe := v.Subscribe(func(events []models.TelemetryEvent) { batches = append(batches, events) })
	defer unsubscribe()

	h.bus.Publish(models.TelemetryEvent{Kind: telemetry.KindAgentAction, Message: "Provisioned accounts"})

	require.Len(t, batches, 1)
	assert.Equal(t, "Provisioned accounts", v.State().Telemetry[0].Message)
}

func TestView_FiltersAndSearch(t *testing.T) {
	h := newHarness(t)
	v := h.start(t)

	v.SetQuery("jordan")
	assert.Equal(t, 1, v.Visible().Total)

	filters, err := v.ToggleFilter(filter.CategoryStage, string(models.StageDay90))
	require.NoError(t, err)
	assert.Equal(t, 1, filters.Active())
	assert.Equal(t, 0, v.Visible().Total)

	_, err = v.ToggleFilter(filter.CategoryStatus, "Unknown")
	require.ErrorIs(t, err, filter.ErrUnknownValue)

	v.ClearFilters()

	state := v.State()
	assert.Empty(t, state.Query)
	assert.Equal(t, 0, state.ActiveFilters)
	assert.Equal(t, 30, v.Visible().Total)
}

func TestView_StopReleasesResources(t *testing.T) {
	h := newHarness(t, memory.WithoutNotifications())
	v := h.start(t)

	assert.Equal(t, 1, h.dispatcher.Listeners("jordanLeeUpdate"))
	assert.Equal(t, 2, h.bus.SubscriberCount())

	require.NoError(t, v.Stop(context.Background()))
	require.NoError(t, v.Stop(context.Background()))

	assert.False(t, v.Running())
	assert.Equal(t, 0, h.dispatcher.Listeners("jordanLeeUpdate"))
	assert.Equal(t, 0, h.bus.SubscriberCount())

	h.set(t, "jordanLeeBGCCompleted", "true")
	h.dispatcher.Emit("jordanLeeUpdate")

	assert.Equal(t, 5, v.Visible().Cases[1].ProgressPercent)

	_, err := v.Reconcile(context.Background(), "jordanLee")
	require.ErrorIs(t, err, ErrStopped)
}

func TestView_StartTwice(t *testing.T) {
	h := newHarness(t)
	v := h.start(t)

	require.ErrorIs(t, v.Start(context.Background()), ErrAlreadyStarted)
}

func TestView_ReconcileBeforeStart(t *testing.T) {
	h := newHarness(t)

	v, err := NewView(h.config())
	require.NoError(t, err)

	_, err = v.Reconcile(context.Background(), "jordanLee")
	require.ErrorIs(t, err, ErrNotStarted)
}
