// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"

	"github.com/caravel-sh/caravel/internal/cli/display"
	"github.com/caravel-sh/caravel/internal/cli/renderer"
)

// consoleProgress prints phase and step markers for interactive runs.
type consoleProgress struct{}

func (consoleProgress) Phase(index, total int, name string) { display.Phase(index, total, name) }
func (consoleProgress) Step(msg string)                     { display.Step(msg) }
func (consoleProgress) StepDone(msg string)                 { display.StepDone(msg) }
func (consoleProgress) StepFail(msg string)                 { display.StepFail(msg) }

// silentProgress discards markers; machine consumers only want the
// final document on stdout.
type silentProgress struct{}

func (silentProgress) Phase(index, total int, name string) {}
func (silentProgress) Step(msg string)                     {}
func (silentProgress) StepDone(msg string)                 {}
func (silentProgress) StepFail(msg string)                 {}

func renderDeployError(err error) error {
	msg, renderErr := renderer.RenderErrorMessage(err)
	if renderErr != nil {
		display.FailureBanner(renderErr.Error())
		return fmt.Errorf("%v", renderErr)
	}

	display.FailureBanner(msg)

	return fmt.Errorf("deployment failed")
}
