package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/config"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/workflow"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the tracking configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "tracking-config",
				Usage:    "Path to the YAML file listing tracked entities",
				Required: true,
				Sources:  cli.EnvVars("TRACKING_CONFIG"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			cfg, err := config.LoadTracking(command.String("tracking-config"))
			if err != nil {
				return err
			}

			for _, e := range cfg.Entities {
				def, _ := e.Definition()
				keys := workflow.KeysFor(e.Key, def)

				fmt.Fprintf(command.Root().Writer, "%s (%s): %s every %s, signal %s, watching %v\n",
					e.Key, e.EmployeeName, e.Workflow, e.Interval(), workflow.UpdateSignal(e.Key), keys.Watched())
			}

			fmt.Fprintf(command.Root().Writer, "%d tracked entities OK\n", len(cfg.Entities))

			return nil
		},
	}
}
