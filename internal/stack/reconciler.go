// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package stack drives a named CloudFormation stack towards a declared
// template and parameter set. The stack lifecycle itself is owned by the
// remote engine; this package only submits desired state and observes.
package stack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
)

// API is the subset of the CloudFormation client the reconciler uses.
type API interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	DescribeStackEvents(ctx context.Context, params *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error)
}

type Outcome string

const (
	OutcomeCreated  Outcome = "Created"
	OutcomeUpdated  Outcome = "Updated"
	OutcomeNoChange Outcome = "NoChange"
)

const DefaultWaitTimeout = 30 * time.Minute

type Request struct {
	Name         string
	TemplateBody string
	Parameters   map[string]string
	WaitTimeout  time.Duration
}

// Reconciliation is the observed terminal state after a reconcile.
type Reconciliation struct {
	Outcome Outcome
	Status  string
	StackID string
	Outputs map[string]string
}

// ReconcileError is a rejected or failed reconciliation. Remediation is
// manual; the renderer points at the event history and the destroy command.
type ReconcileError struct {
	Stack string
	Op    string
	Err   error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("stack %s: %s failed: %v", e.Stack, e.Op, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

type Reconciler struct {
	client API
}

func NewReconciler(client API) *Reconciler {
	return &Reconciler{client: client}
}

// Reconcile creates the stack when absent and updates it otherwise. Both
// paths block until the remote engine reports a terminal state. A no-delta
// update is reported as OutcomeNoChange, not as an error.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (*Reconciliation, error) {
	if req.WaitTimeout <= 0 {
		req.WaitTimeout = DefaultWaitTimeout
	}

	current, err := r.Describe(ctx, req.Name)
	if err != nil && !IsNotFound(err) {
		return nil, &ReconcileError{Stack: req.Name, Op: "describe", Err: err}
	}

	if current == nil {
		return r.create(ctx, req)
	}

	// A stack stuck after a failed first create cannot be updated; it has
	// to be deleted and recreated.
	if current.Status == string(cfntypes.StackStatusRollbackComplete) {
		return nil, &ReconcileError{
			Stack: req.Name,
			Op:    "update",
			Err:   fmt.Errorf("stack is in %s after a failed create and must be deleted first", current.Status),
		}
	}

	return r.update(ctx, req)
}

func (r *Reconciler) create(ctx context.Context, req Request) (*Reconciliation, error) {
	_, err := r.client.CreateStack(ctx, &cloudformation.CreateStackInput{
		StackName:    aws.String(req.Name),
		TemplateBody: aws.String(req.TemplateBody),
		Parameters:   toParameters(req.Parameters),
		Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam},
	})
	if err != nil {
		return nil, &ReconcileError{Stack: req.Name, Op: "create", Err: err}
	}

	waiter := cloudformation.NewStackCreateCompleteWaiter(r.client)
	if err := waiter.Wait(ctx, describeInput(req.Name), req.WaitTimeout); err != nil {
		return nil, &ReconcileError{Stack: req.Name, Op: "create", Err: err}
	}

	result, err := r.Describe(ctx, req.Name)
	if err != nil {
		return nil, &ReconcileError{Stack: req.Name, Op: "describe", Err: err}
	}
	result.Outcome = OutcomeCreated

	return result, nil
}

func (r *Reconciler) update(ctx context.Context, req Request) (*Reconciliation, error) {
	_, err := r.client.UpdateStack(ctx, &cloudformation.UpdateStackInput{
		StackName:    aws.String(req.Name),
		TemplateBody: aws.String(req.TemplateBody),
		Parameters:   toParameters(req.Parameters),
		Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam},
	})
	if err != nil {
		if isNoUpdate(err) {
			result, describeErr := r.Describe(ctx, req.Name)
			if describeErr != nil {
				return nil, &ReconcileError{Stack: req.Name, Op: "describe", Err: describeErr}
			}
			result.Outcome = OutcomeNoChange

			return result, nil
		}

		return nil, &ReconcileError{Stack: req.Name, Op: "update", Err: err}
	}

	waiter := cloudformation.NewStackUpdateCompleteWaiter(r.client)
	if err := waiter.Wait(ctx, describeInput(req.Name), req.WaitTimeout); err != nil {
		return nil, &ReconcileError{Stack: req.Name, Op: "update", Err: err}
	}

	result, err := r.Describe(ctx, req.Name)
	if err != nil {
		return nil, &ReconcileError{Stack: req.Name, Op: "describe", Err: err}
	}
	result.Outcome = OutcomeUpdated

	return result, nil
}

// Describe returns the current stack state, or a not-found error that
// IsNotFound recognizes.
func (r *Reconciler) Describe(ctx context.Context, name string) (*Reconciliation, error) {
	out, err := r.client.DescribeStacks(ctx, describeInput(name))
	if err != nil {
		return nil, err
	}
	if len(out.Stacks) == 0 {
		return nil, &notFoundError{name: name}
	}

	s := out.Stacks[0]
	outputs := make(map[string]string, len(s.Outputs))
	for _, o := range s.Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}

	return &Reconciliation{
		Status:  string(s.StackStatus),
		StackID: aws.ToString(s.StackId),
		Outputs: outputs,
	}, nil
}

// Delete removes the stack and blocks until deletion completes.
func (r *Reconciler) Delete(ctx context.Context, name string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	_, err := r.client.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(name)})
	if err != nil {
		return &ReconcileError{Stack: name, Op: "delete", Err: err}
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(r.client)
	if err := waiter.Wait(ctx, describeInput(name), timeout); err != nil {
		return &ReconcileError{Stack: name, Op: "delete", Err: err}
	}

	return nil
}

func describeInput(name string) *cloudformation.DescribeStacksInput {
	return &cloudformation.DescribeStacksInput{StackName: aws.String(name)}
}

func toParameters(params map[string]string) []cfntypes.Parameter {
	result := make([]cfntypes.Parameter, 0, len(params))
	for key, value := range params {
		result = append(result, cfntypes.Parameter{
			ParameterKey:   aws.String(key),
			ParameterValue: aws.String(value),
		})
	}

	return result
}

type notFoundError struct {
	name string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("stack %s does not exist", e.name)
}

// IsNotFound reports whether err means the stack is absent. The remote
// engine signals this through a ValidationError rather than a dedicated
// error type.
func IsNotFound(err error) bool {
	var nf *notFoundError
	if errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ValidationError" &&
			strings.Contains(apiErr.ErrorMessage(), "does not exist")
	}

	return false
}

func isNoUpdate(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ValidationError" &&
			strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
	}

	return false
}
