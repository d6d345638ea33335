// Package main provides the out-of-process workflow simulator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/cmd"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/config"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/eventbus"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/log"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/simulator"
)

func main() {
	cmd := &cli.Command{
		Name:                  "onboarding-simulator",
		Usage:                 "Drive tracked onboarding cases through their workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "store-url",
				Usage:    "Shared state store URL (file://, redis://, postgres://)",
				Required: true,
				Sources:  cli.EnvVars("STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "kafka",
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
			&cli.DurationFlag{
				Name:    "step-delay",
				Usage:   "Delay between workflow steps",
				Value:   3 * time.Second,
				Sources: cli.EnvVars("STEP_DELAY"),
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Clear the workflow keys of every tracked entity instead of running",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("onboarding-simulator")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracking, err := config.LoadTrackingOrDefault(command.String("tracking-config"))
	if err != nil {
		return err
	}

	stores, err := cmd.NewStoreOpener(command.String("store-url"), logger)
	if err != nil {
		return err
	}

	s, err := stores.Open(ctx, "simulator")
	if err != nil {
		return err
	}

	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	pub, _, err := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), "onboarding-simulator", logger)
	if err != nil {
		return err
	}

	publisher := eventbus.NewPublisher(pub, "simulator")
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	sim := simulator.New(s, publisher, command.Duration("step-delay"), logger)

	if command.Bool("reset") {
		for _, e := range tracking.Entities {
			if err := sim.Reset(ctx, e); err != nil {
				return fmt.Errorf("failed to reset %s: %w", e.Key, err)
			}
		}

		logger.Info("Workflow keys cleared", "entities", len(tracking.Entities))

		return nil
	}

	logger.Info("Starting workflow simulation", "entities", len(tracking.Entities))

	return sim.Run(ctx, tracking.Entities)
}
