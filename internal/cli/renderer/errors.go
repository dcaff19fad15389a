// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package renderer

import (
	"errors"
	"fmt"
	"time"

	"github.com/caravel-sh/caravel/internal/cli/display"
	"github.com/caravel-sh/caravel/internal/fleet"
	"github.com/caravel-sh/caravel/internal/preflight"
	"github.com/caravel-sh/caravel/internal/registry"
	"github.com/caravel-sh/caravel/internal/stack"
)

// RenderErrorMessage turns a typed deployment error into a message with
// remediation guidance. Unknown errors are returned unchanged so the
// caller can fall back to the plain error text.
func RenderErrorMessage(err error) (string, error) {
	var msg string

	var preErr *preflight.Error
	if errors.As(err, &preErr) {
		msg = renderPreflightErrorMessage(preErr)
	}

	var reconcileErr *stack.ReconcileError
	if errors.As(err, &reconcileErr) {
		msg = renderReconcileErrorMessage(reconcileErr)
	}

	var publishErr *registry.PublishError
	if errors.As(err, &publishErr) {
		msg = renderPublishErrorMessage(publishErr)
	}

	var timeoutErr *fleet.ConvergeTimeoutError
	if errors.As(err, &timeoutErr) {
		msg = renderConvergeTimeoutErrorMessage(timeoutErr)
	}

	if msg == "" {
		return "", err
	}

	return msg, nil
}

func renderPreflightErrorMessage(err *preflight.Error) string {
	switch err.Kind {
	case preflight.MissingTool:
		return display.Redf("required tool '%s' was not found on this machine.\n\n", err.Subject) +
			display.Gold("To fix this:\n") +
			fmt.Sprintf("  - %s\n", err.Hint)
	default:
		return display.Redf("required input '%s' is missing.\n\n", err.Subject) +
			display.Gold("To fix this:\n") +
			fmt.Sprintf("  - %s\n", err.Hint)
	}
}

func renderReconcileErrorMessage(err *stack.ReconcileError) string {
	message := display.Redf("stack '%s' failed during %s: %v\n\n", err.Stack, err.Op, err.Err)

	message += display.Gold("To investigate:\n") +
		fmt.Sprintf("  - inspect the recent resource events:  caravel events %s\n", err.Stack)

	// A stack stranded in ROLLBACK_COMPLETE after a failed first create
	// cannot be updated, only removed.
	message += display.Gold("If the stack is stuck in ROLLBACK_COMPLETE:\n") +
		fmt.Sprintf("  - remove it and deploy again:  caravel destroy %s\n", err.Stack)

	return message
}

func renderPublishErrorMessage(err *registry.PublishError) string {
	return display.Redf("artifact publication failed at step '%s': %v\n\n", err.Step, err.Err) +
		display.Gold("To fix this:\n") +
		"  - check that the docker daemon is running and you can run 'docker build' locally\n" +
		"  - check that your cloud credentials allow pushing to the registry\n" +
		"  - re-run the deploy; all phases are safe to repeat\n"
}

func renderConvergeTimeoutErrorMessage(err *fleet.ConvergeTimeoutError) string {
	return display.Redf("fleet %s did not reach steady state within %s.\n\n", err.Ref, err.Elapsed.Round(time.Second)) +
		fmt.Sprintf("  Desired replicas: %d\n", err.Desired) +
		fmt.Sprintf("  Running replicas: %d\n", err.LastObserved.Running) +
		fmt.Sprintf("  Pending replicas: %d\n\n", err.LastObserved.Pending) +
		display.Gold("The fleet may still converge on its own. To resume waiting without redeploying:\n") +
		"  - caravel status --watch\n\n" +
		display.Gold("If replicas keep failing to start:\n") +
		"  - inspect the recent resource events:  caravel events\n"
}
