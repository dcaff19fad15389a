// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Status command reads the deployed target without changing anything.
// With --watch it resumes waiting for the fleet to become steady, which
// is the recovery path after a convergence timeout.
package status

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/cli/app"
	"github.com/caravel-sh/caravel/internal/cli/cmd"
	"github.com/caravel-sh/caravel/internal/cli/display"
	"github.com/caravel-sh/caravel/internal/cli/printer"
	"github.com/caravel-sh/caravel/internal/cli/renderer"
	"github.com/caravel-sh/caravel/internal/config"
	"github.com/caravel-sh/caravel/internal/logging"
	"github.com/caravel-sh/caravel/internal/workflow"
)

type StatusOutput string

const (
	StatusOutputDetailed StatusOutput = "detailed"
	StatusOutputSummary  StatusOutput = "summary"
)

// detailedEventLimit bounds the event history attached to a detailed
// status read.
const detailedEventLimit = 20

type StatusOptions struct {
	Target          string
	Region          string
	OutputConsumer  printer.Consumer
	OutputSchema    string
	OutputLayout    StatusOutput
	Watch           bool
	DesiredCount    int32
	ConvergeTimeout time.Duration
}

func StatusCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "status",
		Short: "Show the current state of a deployed target",
		PreRun: func(command *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.CLI.DataDirectory()), logging.NoLoggingLevel)
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &StatusOptions{}
			opts.Target = command.Flags().Arg(0)
			opts.Region, _ = command.Flags().GetString("region")
			outputConsumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(outputConsumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")
			outputLayout, _ := command.Flags().GetString("output-layout")
			opts.OutputLayout = StatusOutput(outputLayout)
			opts.Watch, _ = command.Flags().GetBool("watch")
			desiredCount, _ := command.Flags().GetInt32("desired-count")
			opts.DesiredCount = desiredCount
			opts.ConvergeTimeout, _ = command.Flags().GetDuration("converge-timeout")

			return runStatus(command, opts)
		},
		Annotations: map[string]string{
			"type":     "Deployment",
			"examples": "{{.Name}} {{.Command}} demo-stack  |  {{.Name}} {{.Command}} --watch",
			"args":     "[target]",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("region", config.DefaultRegion, "Cloud region the target lives in")
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().String("output-layout", string(StatusOutputSummary), fmt.Sprintf("What to print as status output (%s | %s)", StatusOutputSummary, StatusOutputDetailed))
	command.Flags().Bool("watch", false, "Keep waiting until the fleet reaches the desired count")
	command.Flags().Int32("desired-count", config.DefaultDesiredCount, "Replica count the fleet is expected to reach (only with --watch)")
	command.Flags().Duration("converge-timeout", config.DefaultConvergeTimeout, "How long to keep watching (only with --watch)")

	return command
}

func validateStatusOptions(opts *StatusOptions) error {
	if opts.OutputConsumer != printer.ConsumerHuman && opts.OutputConsumer != printer.ConsumerMachine {
		return cmd.FlagErrorf("output consumer must be either 'human' or 'machine'")
	}
	if opts.OutputConsumer == printer.ConsumerMachine {
		if opts.OutputSchema != "json" && opts.OutputSchema != "yaml" {
			return cmd.FlagErrorf("output schema must be either 'json' or 'yaml' for machine consumer")
		}
		if opts.Watch {
			return cmd.FlagErrorf("--watch is only available for the human consumer")
		}
	}
	if opts.OutputLayout != StatusOutputDetailed && opts.OutputLayout != StatusOutputSummary {
		return cmd.FlagErrorf("output layout must be either 'detailed' or 'summary'")
	}

	return nil
}

func runStatus(command *cobra.Command, opts *StatusOptions) error {
	err := validateStatusOptions(opts)
	if err != nil {
		return err
	}

	// No source access token is needed for read-only operations.
	cfg := config.NewDeployment(opts.Target, "", opts.Region, "", "")
	if opts.DesiredCount > 0 {
		cfg.DesiredCount = opts.DesiredCount
	}
	if opts.ConvergeTimeout > 0 {
		cfg.ConvergeTimeout = opts.ConvergeTimeout
	}

	a, err := app.NewApp(command.Context(), cfg.Region)
	if err != nil {
		return err
	}

	eventLimit := 0
	if opts.OutputLayout == StatusOutputDetailed {
		eventLimit = detailedEventLimit
	}

	if opts.OutputConsumer == printer.ConsumerHuman {
		return runStatusForHumans(command, a, cfg, opts.Watch, eventLimit)
	}
	return runStatusForMachines(command, a, cfg, opts.OutputSchema, eventLimit)
}

func runStatusForHumans(command *cobra.Command, a *app.App, cfg config.Deployment, watch bool, eventLimit int) error {
	if watch {
		fmt.Println(display.Grey(fmt.Sprintf("Watching fleet of %s for up to %s...", cfg.Target, cfg.ConvergeTimeout)))
		if err := a.WatchFleet(command.Context(), cfg); err != nil {
			msg, renderErr := renderer.RenderErrorMessage(err)
			if renderErr != nil {
				return renderErr
			}
			return fmt.Errorf("%s", msg)
		}
		display.Success(fmt.Sprintf("Fleet of %s is steady.\n", cfg.Target))
	}

	snapshot, err := a.Status(command.Context(), cfg, eventLimit)
	if err != nil {
		return err
	}

	p := printer.NewHumanReadablePrinter[workflow.Snapshot](os.Stdout)

	return p.Print(snapshot)
}

func runStatusForMachines(command *cobra.Command, a *app.App, cfg config.Deployment, schema string, eventLimit int) error {
	snapshot, err := a.Status(command.Context(), cfg, eventLimit)
	if err != nil {
		return err
	}

	p := printer.NewMachineReadablePrinter[workflow.Snapshot](os.Stdout, schema)

	return p.Print(snapshot)
}
