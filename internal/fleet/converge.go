// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package fleet converges a replica group to an absolute desired count and
// watches it until the remote manager reports steady state. The watch is
// callable on its own so a timed-out wait can be resumed without
// re-issuing the desired-count change.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// API is the subset of the ECS client the converger uses.
type API interface {
	UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
}

// Stack output keys that name the provisioned cluster and service. When
// absent, both default to the target name.
const (
	ClusterOutputKey = "ClusterName"
	ServiceOutputKey = "ServiceName"
)

const DefaultPollInterval = 15 * time.Second

// Ref names a replica group within its cluster.
type Ref struct {
	Cluster string `json:"cluster"`
	Service string `json:"service"`
}

func (r Ref) String() string {
	return r.Cluster + "/" + r.Service
}

// State is one observation of the fleet.
type State struct {
	Desired  int32 `json:"desired"`
	Running  int32 `json:"running"`
	Pending  int32 `json:"pending"`
	Rollouts int   `json:"rollouts"`
}

// Steady reports whether the fleet has converged on the desired count:
// observed equals desired, nothing is starting up, and a single rollout
// remains.
func (s State) Steady(desired int32) bool {
	return s.Desired == desired && s.Running == desired && s.Pending == 0 && s.Rollouts <= 1
}

// ConvergeTimeoutError reports a wait that ran out before steady state.
// The fleet may still converge afterwards; the watch can be resumed.
type ConvergeTimeoutError struct {
	Ref          Ref
	Desired      int32
	LastObserved State
	Elapsed      time.Duration
}

func (e *ConvergeTimeoutError) Error() string {
	return fmt.Sprintf("fleet %s did not reach steady state within %s (desired %d, running %d, pending %d)",
		e.Ref, e.Elapsed.Round(time.Second), e.Desired, e.LastObserved.Running, e.LastObserved.Pending)
}

type Converger struct {
	client       API
	pollInterval time.Duration
}

func NewConverger(client API) *Converger {
	return &Converger{client: client, pollInterval: DefaultPollInterval}
}

func NewConvergerWithInterval(client API, pollInterval time.Duration) *Converger {
	return &Converger{client: client, pollInterval: pollInterval}
}

// Converge requests the absolute desired count and blocks until the fleet
// is steady or the timeout elapses. On success it returns the steady
// observation.
func (c *Converger) Converge(ctx context.Context, ref Ref, desired int32, timeout time.Duration) (State, error) {
	_, err := c.client.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(ref.Cluster),
		Service:      aws.String(ref.Service),
		DesiredCount: aws.Int32(desired),
	})
	if err != nil {
		return State{}, fmt.Errorf("request desired count %d for fleet %s: %w", desired, ref, err)
	}

	return c.Watch(ctx, ref, desired, timeout)
}

// Watch blocks until the fleet is steady on the desired count, without
// mutating anything, and returns that steady observation. It never
// reports success while the observed count differs from the desired
// count.
func (c *Converger) Watch(ctx context.Context, ref Ref, desired int32, timeout time.Duration) (State, error) {
	deadline := time.Now().Add(timeout)
	var last State

	for {
		state, err := c.Observe(ctx, ref)
		if err != nil {
			return State{}, fmt.Errorf("observe fleet %s: %w", ref, err)
		}
		last = state

		if state.Steady(desired) {
			return state, nil
		}

		slog.Debug("Fleet not yet steady",
			"fleet", ref.String(),
			"desired", desired,
			"running", state.Running,
			"pending", state.Pending,
			"rollouts", state.Rollouts)

		if time.Now().After(deadline) {
			return last, &ConvergeTimeoutError{
				Ref:          ref,
				Desired:      desired,
				LastObserved: last,
				Elapsed:      timeout,
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// Observe fetches the current fleet state.
func (c *Converger) Observe(ctx context.Context, ref Ref) (State, error) {
	out, err := c.client.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(ref.Cluster),
		Services: []string{ref.Service},
	})
	if err != nil {
		return State{}, err
	}
	if len(out.Services) == 0 {
		return State{}, fmt.Errorf("fleet %s not found", ref)
	}

	s := out.Services[0]

	return State{
		Desired:  s.DesiredCount,
		Running:  s.RunningCount,
		Pending:  s.PendingCount,
		Rollouts: activeRollouts(s.Deployments),
	}, nil
}

// activeRollouts counts deployments still in flight. A fleet in steady
// state carries exactly one completed primary deployment.
func activeRollouts(deployments []ecstypes.Deployment) int {
	return len(deployments)
}
