// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package config holds the deployment configuration assembled once at
// command start. Phases receive it by value and never consult ambient
// process state for deployment inputs.
package config

import (
	"time"

	"github.com/segmentio/ksuid"
)

const (
	DefaultTarget       = "demo-stack"
	DefaultRegion       = "us-east-1"
	DefaultSourceRepo   = "caravel-sh/demo-app"
	DefaultBranch       = "main"
	DefaultTemplatePath = "infra/template.yaml"

	// RepositoryName is the image repository within the registry. The
	// registry address itself is discovered from stack outputs or derived
	// from the account and region.
	RepositoryName = "demo-app"

	// MutableTag follows the newest published artifact; InitialTag marks
	// the first publication and is never moved afterwards.
	MutableTag = "latest"
	InitialTag = "initial"

	DefaultDesiredCount    = 2
	DefaultConvergeTimeout = 15 * time.Minute
)

// Deployment is the full input set for one workflow run.
type Deployment struct {
	Target          string
	Credential      string
	Region          string
	SourceRepo      string
	Branch          string
	TemplatePath    string
	DesiredCount    int32
	ConvergeTimeout time.Duration

	// RunID identifies this workflow run in logs and the summary.
	RunID string
}

// NewDeployment applies documented defaults to any unset optional input.
// The credential has no default; preflight rejects an empty one.
func NewDeployment(target, credential, region, sourceRepo, branch string) Deployment {
	if target == "" {
		target = DefaultTarget
	}
	if region == "" {
		region = DefaultRegion
	}
	if sourceRepo == "" {
		sourceRepo = DefaultSourceRepo
	}
	if branch == "" {
		branch = DefaultBranch
	}

	return Deployment{
		Target:          target,
		Credential:      credential,
		Region:          region,
		SourceRepo:      sourceRepo,
		Branch:          branch,
		TemplatePath:    DefaultTemplatePath,
		DesiredCount:    DefaultDesiredCount,
		ConvergeTimeout: DefaultConvergeTimeout,
		RunID:           ksuid.New().String(),
	}
}

// StackParameters is the named parameter set submitted with the template.
// Values are absolute desired state, never deltas, so resubmitting the
// same set is a no-op on the remote side.
func (d Deployment) StackParameters() map[string]string {
	return map[string]string{
		"ServiceName":       d.Target,
		"SourceRepository":  d.SourceRepo,
		"SourceBranch":      d.Branch,
		"SourceAccessToken": d.Credential,
	}
}

// FleetName is the name of the replica group the stack provisions for
// this target.
func (d Deployment) FleetName() string {
	return d.Target
}
