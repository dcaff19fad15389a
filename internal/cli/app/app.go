// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package app wires the cloud clients to the deployment phases and
// exposes the operations the commands call.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sourcegraph/conc/pool"

	"github.com/caravel-sh/caravel"
	"github.com/caravel-sh/caravel/internal/cli/display"
	"github.com/caravel-sh/caravel/internal/config"
	"github.com/caravel-sh/caravel/internal/fleet"
	"github.com/caravel-sh/caravel/internal/preflight"
	"github.com/caravel-sh/caravel/internal/registry"
	"github.com/caravel-sh/caravel/internal/stack"
	"github.com/caravel-sh/caravel/internal/usage"
	"github.com/caravel-sh/caravel/internal/workflow"
)

type App struct {
	Stacks    *stack.Reconciler
	Artifacts *registry.Publisher
	Fleet     *fleet.Converger

	Usage usage.Sender
}

// NewApp loads the ambient cloud credentials and constructs the service
// clients for the given region.
func NewApp(ctx context.Context, region string) (*App, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load cloud configuration: %w", err)
	}

	sender, err := usage.NewSender()
	if err != nil {
		fmt.Println(display.Red("Error: " + err.Error()))
		os.Exit(1)
	}

	app := &App{
		Stacks:    stack.NewReconciler(cloudformation.NewFromConfig(awsCfg)),
		Artifacts: registry.NewPublisher(ecr.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg)),
		Fleet:     fleet.NewConverger(ecs.NewFromConfig(awsCfg)),
		Usage:     sender,
	}

	if err := config.CLI.EnsureClientID(); err != nil {
		fmt.Println(display.Red("Error: " + err.Error()))
		os.Exit(1)
	}

	return app, nil
}

// Deploy runs the full deployment workflow against the target.
func (a *App) Deploy(ctx context.Context, cfg config.Deployment, progress workflow.Progress) (*workflow.Summary, error) {
	runner := &workflow.Runner{
		Checker:   preflight.NewChecker(),
		Stacks:    a.Stacks,
		Artifacts: a.Artifacts,
		Fleet:     a.Fleet,
		Probe:     workflow.NewEndpointProbe(),
		Progress:  progress,
	}

	return runner.Run(ctx, cfg)
}

// Status reads the stack, the fleet and optionally the event history
// concurrently and assembles a snapshot. The fleet read starts on the
// default names before the stack outputs are known; when the outputs
// name a different fleet, the read is repeated on the real one and the
// speculative result, including its error, is discarded.
func (a *App) Status(ctx context.Context, cfg config.Deployment, eventLimit int) (*workflow.Snapshot, error) {
	var reconciliation *stack.Reconciliation
	var state fleet.State
	var stateErr error
	var events []stack.Event

	defaultRef := workflow.FleetRef(cfg, nil)

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		reconciliation, err = a.Stacks.Describe(ctx, cfg.Target)
		return err
	})
	p.Go(func(ctx context.Context) error {
		state, stateErr = a.Fleet.Observe(ctx, defaultRef)
		return nil
	})
	if eventLimit > 0 {
		p.Go(func(ctx context.Context) error {
			var err error
			events, err = a.Stacks.Events(ctx, cfg.Target, eventLimit)
			return err
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	ref := workflow.FleetRef(cfg, reconciliation.Outputs)
	if ref != defaultRef {
		var err error
		state, err = a.Fleet.Observe(ctx, ref)
		if err != nil {
			return nil, err
		}
	} else if stateErr != nil {
		return nil, stateErr
	}

	return &workflow.Snapshot{
		Target:      cfg.Target,
		Region:      cfg.Region,
		StackStatus: reconciliation.Status,
		StackID:     reconciliation.StackID,
		Fleet:       state,
		FleetRef:    ref,
		Endpoints:   workflow.Endpoints(reconciliation.Outputs),
		Events:      events,
	}, nil
}

// Plan reports what a deploy would do without changing anything: the
// preflight results plus whether the stack would be created or updated.
func (a *App) Plan(ctx context.Context, cfg config.Deployment) (stack.Outcome, string, error) {
	current, err := a.Stacks.Describe(ctx, cfg.Target)
	if err != nil {
		if stack.IsNotFound(err) {
			return stack.OutcomeCreated, "", nil
		}
		return "", "", err
	}

	return stack.OutcomeUpdated, current.Status, nil
}

// WatchFleet resumes waiting for the fleet to reach the desired count
// without re-issuing any change.
func (a *App) WatchFleet(ctx context.Context, cfg config.Deployment) error {
	reconciliation, err := a.Stacks.Describe(ctx, cfg.Target)
	if err != nil {
		return err
	}

	ref := workflow.FleetRef(cfg, reconciliation.Outputs)
	_, err = a.Fleet.Watch(ctx, ref, cfg.DesiredCount, cfg.ConvergeTimeout)

	return err
}

// Events returns the most recent stack resource events, newest first.
func (a *App) Events(ctx context.Context, cfg config.Deployment, limit int) ([]stack.Event, error) {
	return a.Stacks.Events(ctx, cfg.Target, limit)
}

// Destroy deletes the stack and blocks until the deletion finished.
func (a *App) Destroy(ctx context.Context, cfg config.Deployment) error {
	return a.Stacks.Delete(ctx, cfg.Target, stack.DefaultWaitTimeout)
}

// ReportUsage sends one anonymous usage event. Failures are swallowed,
// telemetry never affects the command outcome.
func (a *App) ReportUsage(command, outcome, region string, elapsed time.Duration) {
	clientID, err := config.CLI.ClientID()
	if err != nil {
		return
	}

	_ = a.Usage.SendReport(&usage.Report{
		ClientID:   clientID,
		Command:    command,
		Outcome:    outcome,
		Region:     region,
		DurationMs: elapsed.Milliseconds(),
		Version:    caravel.Version,
	})
}
