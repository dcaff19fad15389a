// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Events command lists the recent stack resource events, which is where
// the remote engine explains a failed or slow reconciliation.
package events

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/cli/app"
	"github.com/caravel-sh/caravel/internal/cli/cmd"
	"github.com/caravel-sh/caravel/internal/cli/printer"
	"github.com/caravel-sh/caravel/internal/config"
	"github.com/caravel-sh/caravel/internal/logging"
	"github.com/caravel-sh/caravel/internal/stack"
)

type EventsOptions struct {
	Target         string
	Region         string
	OutputConsumer printer.Consumer
	OutputSchema   string
	MaxResults     int
}

func EventsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "events",
		Short: "List recent stack resource events, newest first",
		PreRun: func(command *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.CLI.DataDirectory()), logging.NoLoggingLevel)
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &EventsOptions{}
			opts.Target = command.Flags().Arg(0)
			opts.Region, _ = command.Flags().GetString("region")
			outputConsumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(outputConsumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")
			opts.MaxResults, _ = command.Flags().GetInt("max-results")

			return runEvents(command, opts)
		},
		Annotations: map[string]string{
			"type":     "Troubleshooting",
			"examples": "{{.Name}} {{.Command}} demo-stack --max-results 20",
			"args":     "[target]",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("region", config.DefaultRegion, "Cloud region the target lives in")
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().Int("max-results", 20, "Maximum number of events to return")

	return command
}

func validateEventsOptions(opts *EventsOptions) error {
	if opts.OutputConsumer != printer.ConsumerHuman && opts.OutputConsumer != printer.ConsumerMachine {
		return cmd.FlagErrorf("output consumer must be either 'human' or 'machine'")
	}
	if opts.OutputConsumer == printer.ConsumerMachine {
		if opts.OutputSchema != "json" && opts.OutputSchema != "yaml" {
			return cmd.FlagErrorf("output schema must be either 'json' or 'yaml' for machine consumer")
		}
	}
	if opts.MaxResults < 1 {
		return cmd.FlagErrorf("--max-results must be at least 1")
	}

	return nil
}

func runEvents(command *cobra.Command, opts *EventsOptions) error {
	err := validateEventsOptions(opts)
	if err != nil {
		return err
	}

	cfg := config.NewDeployment(opts.Target, "", opts.Region, "", "")

	a, err := app.NewApp(command.Context(), cfg.Region)
	if err != nil {
		return err
	}

	events, err := a.Events(command.Context(), cfg, opts.MaxResults)
	if err != nil {
		return err
	}

	if opts.OutputConsumer == printer.ConsumerHuman {
		p := printer.NewHumanReadablePrinter[[]stack.Event](os.Stdout)
		return p.Print(&events)
	}

	p := printer.NewMachineReadablePrinter[[]stack.Event](os.Stdout, opts.OutputSchema)

	return p.Print(&events)
}
