// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Destroy command removes the stack and everything it provisioned. It
// is also the way out of a stack stranded in ROLLBACK_COMPLETE after a
// failed first deployment.
package destroy

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caravel-sh/caravel/internal/cli/app"
	"github.com/caravel-sh/caravel/internal/cli/cmd"
	"github.com/caravel-sh/caravel/internal/cli/display"
	"github.com/caravel-sh/caravel/internal/cli/prompter"
	"github.com/caravel-sh/caravel/internal/config"
	"github.com/caravel-sh/caravel/internal/logging"
)

type DestroyOptions struct {
	Target string
	Region string
	Yes    bool
}

func DestroyCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the stack and all resources it provisioned",
		PreRun: func(command *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.CLI.DataDirectory()), logging.NoLoggingLevel)
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &DestroyOptions{}
			opts.Target = command.Flags().Arg(0)
			opts.Region, _ = command.Flags().GetString("region")
			opts.Yes, _ = command.Flags().GetBool("yes")

			return runDestroy(command, opts)
		},
		Annotations: map[string]string{
			"type":     "Deployment",
			"examples": "{{.Name}} {{.Command}} demo-stack --yes",
			"args":     "[target]",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("region", config.DefaultRegion, "Cloud region the target lives in")
	command.Flags().Bool("yes", false, "Allow the command to run without any confirmations")

	return command
}

func runDestroy(command *cobra.Command, opts *DestroyOptions) error {
	cfg := config.NewDeployment(opts.Target, "", opts.Region, "", "")

	if !opts.Yes {
		p := prompter.NewBasicPrompter()
		confirmed := p.Confirm(
			display.Goldf("This will delete stack '%s' and everything it provisioned. Continue?", cfg.Target),
			false)
		if !confirmed {
			fmt.Println(display.Grey("Aborted."))
			return nil
		}
	}

	a, err := app.NewApp(command.Context(), cfg.Region)
	if err != nil {
		return err
	}

	fmt.Println(display.Grey(fmt.Sprintf("Deleting stack %s, this can take a while...", cfg.Target)))

	if err := a.Destroy(command.Context(), cfg); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("Stack %s deleted.", cfg.Target))

	return nil
}
