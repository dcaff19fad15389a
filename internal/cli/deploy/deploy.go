// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Deploy command drives a service from source to a running fleet in one
// invocation.
package deploy

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/cli/app"
	"github.com/caravel-sh/caravel/internal/cli/cmd"
	"github.com/caravel-sh/caravel/internal/cli/display"
	"github.com/caravel-sh/caravel/internal/cli/printer"
	"github.com/caravel-sh/caravel/internal/cli/prompter"
	"github.com/caravel-sh/caravel/internal/config"
	"github.com/caravel-sh/caravel/internal/logging"
	"github.com/caravel-sh/caravel/internal/stack"
	"github.com/caravel-sh/caravel/internal/workflow"
)

type DeployOptions struct {
	Target          string
	Credential      string
	Region          string
	SourceRepo      string
	Branch          string
	TemplatePath    string
	DesiredCount    int32
	ConvergeTimeout time.Duration
	OutputConsumer  printer.Consumer
	OutputSchema    string
	Simulate        bool
	Yes             bool
}

func DeployCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a service: provision the stack, publish the image, converge the fleet",
		PreRun: func(command *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.CLI.DataDirectory()), logging.NoLoggingLevel)
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &DeployOptions{}
			opts.Target = command.Flags().Arg(0)
			opts.Credential = strings.TrimSpace(command.Flags().Arg(1))
			opts.Region, _ = command.Flags().GetString("region")
			opts.SourceRepo, _ = command.Flags().GetString("source-repo")
			opts.Branch, _ = command.Flags().GetString("branch")
			opts.TemplatePath, _ = command.Flags().GetString("template")
			desiredCount, _ := command.Flags().GetInt32("desired-count")
			opts.DesiredCount = desiredCount
			opts.ConvergeTimeout, _ = command.Flags().GetDuration("converge-timeout")
			outputConsumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(outputConsumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")
			opts.Simulate, _ = command.Flags().GetBool("simulate")
			opts.Yes, _ = command.Flags().GetBool("yes")

			return runDeploy(command, opts)
		},
		Annotations: map[string]string{
			"type":     "Deployment",
			"examples": "{{.Name}} {{.Command}} demo-stack $GITHUB_TOKEN",
			"args":     "[target] [source access token]",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("region", config.DefaultRegion, "Cloud region to deploy into")
	command.Flags().String("source-repo", config.DefaultSourceRepo, "Source repository in owner/name form")
	command.Flags().String("branch", config.DefaultBranch, "Source branch to deploy")
	command.Flags().String("template", config.DefaultTemplatePath, "Path to the stack template")
	command.Flags().Int32("desired-count", config.DefaultDesiredCount, "Number of replicas the fleet should run")
	command.Flags().Duration("converge-timeout", config.DefaultConvergeTimeout, "How long to wait for the fleet to become steady")
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().Bool("simulate", false, "Report what the deploy would change without changing anything")
	command.Flags().Bool("yes", false, "Allow the command to run without any confirmations")

	return command
}

func validateDeployOptions(opts *DeployOptions) error {
	if opts.OutputConsumer != printer.ConsumerHuman && opts.OutputConsumer != printer.ConsumerMachine {
		return cmd.FlagErrorf("output consumer must be either 'human' or 'machine'")
	}
	if opts.OutputConsumer == printer.ConsumerMachine {
		if opts.OutputSchema != "json" && opts.OutputSchema != "yaml" {
			return cmd.FlagErrorf("output schema must be either 'json' or 'yaml' for machine consumer")
		}
	}
	if opts.DesiredCount < 1 {
		return cmd.FlagErrorf("--desired-count must be at least 1")
	}
	if opts.ConvergeTimeout <= 0 {
		return cmd.FlagErrorf("--converge-timeout must be positive")
	}

	return nil
}

func runDeploy(command *cobra.Command, opts *DeployOptions) error {
	err := validateDeployOptions(opts)
	if err != nil {
		return err
	}

	cfg := deploymentFromOptions(opts)

	a, err := app.NewApp(command.Context(), cfg.Region)
	if err != nil {
		return err
	}

	if opts.Simulate {
		return runSimulate(command, a, cfg)
	}

	if opts.OutputConsumer == printer.ConsumerHuman {
		return runDeployForHumans(command, a, cfg, opts.Yes)
	}
	return runDeployForMachines(command, a, cfg, opts.OutputSchema)
}

// runSimulate reports the planned stack operation and stops before any
// remote mutation.
func runSimulate(command *cobra.Command, a *app.App, cfg config.Deployment) error {
	display.PrintBanner()

	outcome, status, err := a.Plan(command.Context(), cfg)
	if err != nil {
		return err
	}

	if outcome == stack.OutcomeCreated {
		fmt.Println(display.Gold("Deploy would:") + "\n  - create stack " + display.LightBlue(cfg.Target))
	} else {
		fmt.Println(display.Gold("Deploy would:") + "\n  - update stack " + display.LightBlue(cfg.Target) + display.Greyf(" (currently %s)", status))
	}
	fmt.Println("  - publish the container image and converge the fleet to " + display.LightBluef("%d", cfg.DesiredCount) + " replicas")

	return nil
}

func deploymentFromOptions(opts *DeployOptions) config.Deployment {
	cfg := config.NewDeployment(opts.Target, opts.Credential, opts.Region, opts.SourceRepo, opts.Branch)
	if opts.TemplatePath != "" {
		cfg.TemplatePath = opts.TemplatePath
	}
	if opts.DesiredCount > 0 {
		cfg.DesiredCount = opts.DesiredCount
	}
	if opts.ConvergeTimeout > 0 {
		cfg.ConvergeTimeout = opts.ConvergeTimeout
	}

	return cfg
}

func runDeployForHumans(command *cobra.Command, a *app.App, cfg config.Deployment, yes bool) error {
	display.PrintBanner()

	fmt.Print(display.Gold("Deploying:\n ") +
		display.Green("Target: ") + fmt.Sprintf("%s\n ", cfg.Target) +
		display.Green("Source: ") + fmt.Sprintf("%s@%s\n ", cfg.SourceRepo, cfg.Branch) +
		display.Green("Region: ") + fmt.Sprintf("%s\n", cfg.Region))

	if !yes {
		p := prompter.NewBasicPrompter()
		if !p.Confirm(display.Gold("Continue?"), false) {
			fmt.Println(display.Grey("Aborted."))
			return nil
		}
	}

	start := time.Now()
	summary, err := a.Deploy(command.Context(), cfg, consoleProgress{})
	if err != nil {
		a.ReportUsage("deploy", "failure", cfg.Region, time.Since(start))
		return renderDeployError(err)
	}
	a.ReportUsage("deploy", "success", cfg.Region, time.Since(start))

	fmt.Println()
	p := printer.NewHumanReadablePrinter[workflow.Summary](os.Stdout)
	if err := p.Print(summary); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("\nDeployed %s in %s.", cfg.Target, summary.Elapsed))

	return nil
}

func runDeployForMachines(command *cobra.Command, a *app.App, cfg config.Deployment, schema string) error {
	start := time.Now()
	summary, err := a.Deploy(command.Context(), cfg, silentProgress{})
	if err != nil {
		a.ReportUsage("deploy", "failure", cfg.Region, time.Since(start))
		return err
	}
	a.ReportUsage("deploy", "success", cfg.Region, time.Since(start))

	p := printer.NewMachineReadablePrinter[workflow.Summary](os.Stdout, schema)

	return p.Print(summary)
}
