// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package workflow runs the five deployment phases in order: preflight,
// stack reconciliation, artifact publication, fleet convergence, outcome
// reporting. Phases run strictly sequentially; any failure aborts the
// remainder. No rollback is attempted, re-running from phase one is safe
// because every phase submits absolute desired state.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caravel-sh/caravel/internal/config"
	"github.com/caravel-sh/caravel/internal/fleet"
	"github.com/caravel-sh/caravel/internal/preflight"
	"github.com/caravel-sh/caravel/internal/registry"
	"github.com/caravel-sh/caravel/internal/stack"
)

const totalPhases = 5

// Progress receives human-readable phase and step markers. The CLI wires
// a display-backed implementation; tests record the calls.
type Progress interface {
	Phase(index, total int, name string)
	Step(msg string)
	StepDone(msg string)
	StepFail(msg string)
}

type Reconciler interface {
	Reconcile(ctx context.Context, req stack.Request) (*stack.Reconciliation, error)
}

type Publisher interface {
	Publish(ctx context.Context, req registry.Request) (*registry.Publication, error)
}

type Converger interface {
	Converge(ctx context.Context, ref fleet.Ref, desired int32, timeout time.Duration) (fleet.State, error)
}

type Prober interface {
	Probe(ctx context.Context, url string) error
}

// Summary is the final report of a successful run.
type Summary struct {
	RunID        string            `json:"runId"`
	Target       string            `json:"target"`
	Region       string            `json:"region"`
	StackOutcome stack.Outcome     `json:"stackOutcome"`
	StackStatus  string            `json:"stackStatus"`
	Artifact     ArtifactSummary   `json:"artifact"`
	DesiredCount int32             `json:"desiredCount"`
	RunningCount int32             `json:"runningCount"`
	Endpoints    map[string]string `json:"endpoints"`
	Reachable    map[string]bool   `json:"reachable"`
	Elapsed      time.Duration     `json:"elapsed"`
}

type ArtifactSummary struct {
	Address string   `json:"address"`
	Tags    []string `json:"tags"`
	Digest  string   `json:"digest"`
}

type Runner struct {
	Checker   *preflight.Checker
	Stacks    Reconciler
	Artifacts Publisher
	Fleet     Converger
	Probe     Prober
	Progress  Progress
}

// Run drives the external system to the described target state and
// returns the deployment summary, or the first phase failure.
func (r *Runner) Run(ctx context.Context, cfg config.Deployment) (*Summary, error) {
	start := time.Now()
	slog.Info("Starting deployment", "run", cfg.RunID, "target", cfg.Target, "region", cfg.Region)

	if err := r.runPreflight(cfg); err != nil {
		return nil, err
	}

	reconciliation, err := r.runReconcile(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publication, err := r.runPublish(ctx, cfg, reconciliation.Outputs)
	if err != nil {
		return nil, err
	}

	observed, err := r.runConverge(ctx, cfg, reconciliation.Outputs)
	if err != nil {
		return nil, err
	}

	summary := r.report(ctx, cfg, reconciliation, publication, observed)
	summary.Elapsed = time.Since(start).Round(time.Second)
	slog.Info("Deployment finished", "run", cfg.RunID, "elapsed", summary.Elapsed)

	return summary, nil
}

func (r *Runner) runPreflight(cfg config.Deployment) error {
	r.Progress.Phase(1, totalPhases, "Preconditions")

	results := r.Checker.Check(cfg)
	for _, result := range results {
		if result.Err != nil {
			r.Progress.StepFail(result.Name)
		} else {
			r.Progress.StepDone(result.Name)
		}
	}

	if err := preflight.First(results); err != nil {
		return err
	}

	return nil
}

func (r *Runner) runReconcile(ctx context.Context, cfg config.Deployment) (*stack.Reconciliation, error) {
	r.Progress.Phase(2, totalPhases, "Stack reconciliation")
	r.Progress.Step(fmt.Sprintf("submitting declared state for stack %s", cfg.Target))

	template, err := os.ReadFile(cfg.TemplatePath)
	if err != nil {
		return nil, &stack.ReconcileError{Stack: cfg.Target, Op: "read template", Err: err}
	}

	reconciliation, err := r.Stacks.Reconcile(ctx, stack.Request{
		Name:         cfg.Target,
		TemplateBody: string(template),
		Parameters:   cfg.StackParameters(),
	})
	if err != nil {
		r.Progress.StepFail("stack did not reach a ready state")
		return nil, err
	}

	switch reconciliation.Outcome {
	case stack.OutcomeNoChange:
		r.Progress.StepDone("no changes to apply, stack is up to date")
	case stack.OutcomeCreated:
		r.Progress.StepDone(fmt.Sprintf("stack created (%s)", reconciliation.Status))
	default:
		r.Progress.StepDone(fmt.Sprintf("stack updated (%s)", reconciliation.Status))
	}

	return reconciliation, nil
}

// runPublish must complete before the first convergence: a fleet without a
// published artifact has nothing to run and never becomes ready.
func (r *Runner) runPublish(ctx context.Context, cfg config.Deployment, outputs map[string]string) (*registry.Publication, error) {
	r.Progress.Phase(3, totalPhases, "Artifact publication")
	r.Progress.Step("building and pushing the container image")

	publication, err := r.Artifacts.Publish(ctx, registry.Request{
		ContextDir:    ".",
		Repository:    config.RepositoryName,
		Region:        cfg.Region,
		DiscoveredURI: outputs[registry.RegistryOutputKey],
		MutableTag:    config.MutableTag,
		InitialTag:    config.InitialTag,
	})
	if err != nil {
		r.Progress.StepFail("artifact publication failed")
		return nil, err
	}

	r.Progress.StepDone(fmt.Sprintf("pushed %s (%s)", strings.Join(publication.Tags, ", "), publication.Digest))

	return publication, nil
}

func (r *Runner) runConverge(ctx context.Context, cfg config.Deployment, outputs map[string]string) (fleet.State, error) {
	r.Progress.Phase(4, totalPhases, "Fleet convergence")

	ref := FleetRef(cfg, outputs)
	r.Progress.Step(fmt.Sprintf("converging fleet %s to %d replicas (up to %s)", ref, cfg.DesiredCount, cfg.ConvergeTimeout))

	observed, err := r.Fleet.Converge(ctx, ref, cfg.DesiredCount, cfg.ConvergeTimeout)
	if err != nil {
		r.Progress.StepFail("fleet did not reach steady state")
		return fleet.State{}, err
	}
	r.Progress.StepDone(fmt.Sprintf("fleet steady at %d/%d running", observed.Running, observed.Desired))

	return observed, nil
}

func (r *Runner) report(ctx context.Context, cfg config.Deployment, reconciliation *stack.Reconciliation, publication *registry.Publication, observed fleet.State) *Summary {
	r.Progress.Phase(5, totalPhases, "Outcome")

	endpoints := Endpoints(reconciliation.Outputs)
	reachable := make(map[string]bool, len(endpoints))
	for key, url := range endpoints {
		err := r.Probe.Probe(ctx, url)
		reachable[key] = err == nil
		if err != nil {
			slog.Debug("Endpoint probe failed", "endpoint", url, "error", err)
		}
	}

	return &Summary{
		RunID:        cfg.RunID,
		Target:       cfg.Target,
		Region:       cfg.Region,
		StackOutcome: reconciliation.Outcome,
		StackStatus:  reconciliation.Status,
		Artifact: ArtifactSummary{
			Address: publication.Address,
			Tags:    publication.Tags,
			Digest:  publication.Digest,
		},
		DesiredCount: cfg.DesiredCount,
		RunningCount: observed.Running,
		Endpoints:    endpoints,
		Reachable:    reachable,
	}
}

// FleetRef resolves the cluster and service names from stack outputs,
// falling back to the target name for both.
func FleetRef(cfg config.Deployment, outputs map[string]string) fleet.Ref {
	ref := fleet.Ref{Cluster: cfg.Target, Service: cfg.FleetName()}
	if name := outputs[fleet.ClusterOutputKey]; name != "" {
		ref.Cluster = name
	}
	if name := outputs[fleet.ServiceOutputKey]; name != "" {
		ref.Service = name
	}

	return ref
}

// Endpoints picks the URL-valued entries out of the stack outputs.
func Endpoints(outputs map[string]string) map[string]string {
	endpoints := make(map[string]string)
	for key, value := range outputs {
		if strings.HasSuffix(strings.ToLower(key), "url") && value != "" {
			endpoints[key] = value
		}
	}

	return endpoints
}
