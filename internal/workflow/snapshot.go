// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"github.com/caravel-sh/caravel/internal/fleet"
	"github.com/caravel-sh/caravel/internal/stack"
)

// Snapshot is a point-in-time view of a deployed target, assembled from
// the stack and fleet reads without mutating anything.
type Snapshot struct {
	Target      string            `json:"target"`
	Region      string            `json:"region"`
	StackStatus string            `json:"stackStatus"`
	StackID     string            `json:"stackId,omitempty"`
	Fleet       fleet.State       `json:"fleet"`
	FleetRef    fleet.Ref         `json:"fleetRef"`
	Endpoints   map[string]string `json:"endpoints"`
	Events      []stack.Event     `json:"events,omitempty"`
}

// Settled reports whether the fleet backing this snapshot matches the
// deployment's desired count.
func (s *Snapshot) Settled(desired int32) bool {
	return s.Fleet.Steady(desired)
}
