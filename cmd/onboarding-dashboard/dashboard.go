package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/casesource"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/cmd"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/config"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/dashboard"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/eventbus"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/metrics"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/otelhelper"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/simulator"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/telemetry"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/triggers/signal"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/web"
)

const serviceName = "onboarding-dashboard"

// Options configure one dashboard process.
type Options struct {
	StoreURL     string
	EventBus     string
	KafkaBrokers []string
	Tracking     config.TrackingConfig
	Tracing      bool
	Simulate     bool
	StepDelay    time.Duration
}

// Dashboard owns the long-lived collaborators shared by every view
// generation and the HTTP API in front of them.
type Dashboard struct {
	opts      Options
	logger    *slog.Logger
	stores    *cmd.StoreOpener
	store     store.Store
	publisher message.Publisher
	relay     *eventbus.Relay
	bus       *telemetry.Bus
	signals   *signal.Dispatcher
	collector *metrics.Collector
	tracer    trace.Tracer
	shutdown  otelhelper.ShutdownFunc
	navigator *dashboard.Navigator
	source    casesource.Source
	cancel    context.CancelFunc
}

func NewDashboard(ctx context.Context, logger *slog.Logger, opts Options) (*Dashboard, error) {
	if err := config.Validate(opts.Tracking); err != nil {
		return nil, err
	}

	d := &Dashboard{
		opts:      opts,
		logger:    logger,
		signals:   signal.NewDispatcher(),
		navigator: dashboard.NewNavigator(logger),
		source:    casesource.NewGenerator(),
		tracer:    otelhelper.Noop(),
	}

	stores, err := cmd.NewStoreOpener(opts.StoreURL, logger)
	if err != nil {
		return nil, err
	}

	d.stores = stores
	d.collector = metrics.NewCollector(stores.Dropped())
	d.bus = telemetry.NewBus(telemetry.WithDeliveries(d.collector))

	d.store, err = stores.Open(ctx, "dashboard-"+uuid.New().String()[:8])
	if err != nil {
		return nil, err
	}

	if opts.Tracing {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			d.closeStore()

			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		d.tracer, d.shutdown = tracer, shutdown
	}

	pub, sub, err := cmd.NewEventBus(opts.EventBus, opts.KafkaBrokers, serviceName, logger)
	if err != nil {
		d.closeStore()

		return nil, err
	}

	d.publisher = pub

	d.relay, err = eventbus.NewRelay(sub, d.signals, d.bus, logger)
	if err != nil {
		d.closeStore()

		return nil, err
	}

	return d, nil
}

// Start subscribes the relay, shows the first view and, in simulate mode,
// runs the workflow scripts in the background.
func (d *Dashboard) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)

	if err := d.relay.Subscribe(ctx); err != nil {
		return err
	}

	if _, err := d.navigator.Show(ctx, d.newView); err != nil {
		return err
	}

	if d.opts.Simulate {
		if err := d.simulate(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dashboard) newView() (*dashboard.View, error) {
	return dashboard.NewView(dashboard.Config{
		Store:      d.store,
		Source:     d.source,
		Bus:        d.bus,
		Dispatcher: d.signals,
		Entities:   d.opts.Tracking.Entities,
		Observer:   d.collector,
		Tracer:     d.tracer,
		Logger:     d.logger,
		Debounce:   d.opts.Tracking.Debounce,
		Limit:      d.opts.Tracking.RenderLimit,
	})
}

// Reload replaces the current view with a fresh generation.
func (d *Dashboard) Reload(ctx context.Context) error {
	_, err := d.navigator.Show(ctx, d.newView)

	return err
}

func (d *Dashboard) simulate(ctx context.Context) error {
	s, err := d.stores.Open(ctx, "simulator")
	if err != nil {
		return err
	}

	sim := simulator.New(s, eventbus.NewPublisher(d.publisher, "simulator"), d.opts.StepDelay, d.logger)

	go func() {
		defer func() { _ = s.Close() }()

		if err := sim.Run(ctx, d.opts.Tracking.Entities); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("Embedded simulator failed", "error", err)
		}
	}()

	return nil
}

func (d *Dashboard) App() *fiber.App {
	handlers := web.NewAPIHandlers(d.navigator, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(fiber.Ctx) bool {
			v := d.navigator.Current()

			return v != nil && v.Running()
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Onboarding Dashboard")
	})

	app.Get("/metrics", adaptor.HTTPHandler(d.collector.Handler()))

	handlers.Register(app.Group("/api"))

	app.Post("/api/reload", func(c fiber.Ctx) error {
		if err := d.Reload(c.Context()); err != nil {
			return err
		}

		return c.SendStatus(fiber.StatusNoContent)
	})

	return app
}

func (d *Dashboard) Close(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	var errs []error

	if err := d.navigator.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close view: %w", err))
	}

	if err := d.relay.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close relay: %w", err))
	}

	if err := d.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close publisher: %w", err))
	}

	if d.shutdown != nil {
		if err := d.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}

	return errors.Join(errs...)
}

func (d *Dashboard) closeStore() {
	if err := d.store.Close(); err != nil {
		d.logger.Error("Failed to close store", "error", err)
	}
}
