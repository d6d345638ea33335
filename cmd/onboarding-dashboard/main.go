// Package main provides the onboarding dashboard server.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/config"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/log"
)

const (
	defaultPort     = 9091
	shutdownTimeout = 10 * time.Second
)

func main() {
	cmd := &cli.Command{
		Name:                  "onboarding-dashboard",
		Usage:                 "Monitor onboarding cases and reconcile workflow state",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "store-url",
				Usage:   "Shared state store URL (memory://, file://, redis://, postgres://)",
				Value:   "memory://",
				Sources: cli.EnvVars("STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers when event-bus is kafka",
				Value:   []string{"localhost:9092"},
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "tracking-config",
				Usage:   "Path to the YAML file listing tracked entities",
				Sources: cli.EnvVars("TRACKING_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "simulate",
				Usage:   "Run the workflow simulator inside the dashboard process",
				Sources: cli.EnvVars("SIMULATE"),
			},
			&cli.DurationFlag{
				Name:    "step-delay",
				Usage:   "Delay between simulated workflow steps",
				Value:   3 * time.Second,
				Sources: cli.EnvVars("STEP_DELAY"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export reconciliation spans over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("onboarding-dashboard")

			logger.InfoContext(ctx, "Initializing Onboarding Dashboard")

			tracking, err := config.LoadTrackingOrDefault(command.String("tracking-config"))
			if err != nil {
				return err
			}

			d, err := NewDashboard(ctx, logger, Options{
				StoreURL:     command.String("store-url"),
				EventBus:     command.String("event-bus"),
				KafkaBrokers: command.StringSlice("kafka-brokers"),
				Tracking:     tracking,
				Tracing:      command.Bool("tracing"),
				Simulate:     command.Bool("simulate"),
				StepDelay:    command.Duration("step-delay"),
			})
			if err != nil {
				return err
			}

			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := d.Close(closeCtx); err != nil {
					logger.Error("Failed to close dashboard", "error", err)
				}
			}()

			if err := d.Start(ctx); err != nil {
				return err
			}

			app := d.App()

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				for sig := range signals {
					logger.Info("Received signal", "signal", sig)

					if sig == syscall.SIGHUP {
						if err := d.Reload(ctx); err != nil {
							logger.Error("Failed to reload view", "error", err)
						}

						continue
					}

					if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
						logger.Error("Failed to shut down API", "error", err)
					}

					return
				}
			}()

			defer signal.Stop(signals)

			return app.Listen(":" + strconv.Itoa(int(command.Int("port"))))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
