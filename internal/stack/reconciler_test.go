// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unit

package stack

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	describeFn func(call int) (*cloudformation.DescribeStacksOutput, error)
	createErr  error
	updateErr  error
	deleteErr  error
	eventsOut  *cloudformation.DescribeStackEventsOutput

	describeCalls int
	createCalls   int
	updateCalls   int
	deleteCalls   int
}

func (f *fakeAPI) DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	f.describeCalls++
	return f.describeFn(f.describeCalls)
}

func (f *fakeAPI) CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &cloudformation.CreateStackOutput{StackId: aws.String("arn:stack/demo-stack")}, nil
}

func (f *fakeAPI) UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &cloudformation.UpdateStackOutput{StackId: aws.String("arn:stack/demo-stack")}, nil
}

func (f *fakeAPI) DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &cloudformation.DeleteStackOutput{}, nil
}

func (f *fakeAPI) DescribeStackEvents(ctx context.Context, params *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error) {
	return f.eventsOut, nil
}

func describedStack(status cfntypes.StackStatus) *cloudformation.DescribeStacksOutput {
	return &cloudformation.DescribeStacksOutput{
		Stacks: []cfntypes.Stack{{
			StackName:   aws.String("demo-stack"),
			StackId:     aws.String("arn:stack/demo-stack"),
			StackStatus: status,
			Outputs: []cfntypes.Output{
				{OutputKey: aws.String("ServiceUrl"), OutputValue: aws.String("http://demo.example.com")},
			},
		}},
	}
}

func notFoundErr() error {
	return &smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "Stack with id demo-stack does not exist",
	}
}

func TestReconcile(t *testing.T) {
	req := Request{
		Name:         "demo-stack",
		TemplateBody: "{}",
		Parameters:   map[string]string{"ServiceName": "demo-stack"},
		WaitTimeout:  5 * time.Second,
	}

	t.Run("creates the stack when absent and waits for the terminal state", func(t *testing.T) {
		api := &fakeAPI{
			describeFn: func(call int) (*cloudformation.DescribeStacksOutput, error) {
				if call == 1 {
					return nil, notFoundErr()
				}
				return describedStack(cfntypes.StackStatusCreateComplete), nil
			},
		}

		result, err := NewReconciler(api).Reconcile(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, result.Outcome)
		assert.Equal(t, string(cfntypes.StackStatusCreateComplete), result.Status)
		assert.Equal(t, "http://demo.example.com", result.Outputs["ServiceUrl"])
		assert.Equal(t, 1, api.createCalls)
		assert.Zero(t, api.updateCalls)
	})

	t.Run("no-delta update is a success, not an error", func(t *testing.T) {
		api := &fakeAPI{
			describeFn: func(call int) (*cloudformation.DescribeStacksOutput, error) {
				return describedStack(cfntypes.StackStatusUpdateComplete), nil
			},
			updateErr: &smithy.GenericAPIError{
				Code:    "ValidationError",
				Message: "No updates are to be performed.",
			},
		}

		result, err := NewReconciler(api).Reconcile(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoChange, result.Outcome)
		assert.Equal(t, "http://demo.example.com", result.Outputs["ServiceUrl"])
	})

	t.Run("updates an existing stack and waits for the terminal state", func(t *testing.T) {
		api := &fakeAPI{
			describeFn: func(call int) (*cloudformation.DescribeStacksOutput, error) {
				return describedStack(cfntypes.StackStatusUpdateComplete), nil
			},
		}

		result, err := NewReconciler(api).Reconcile(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUpdated, result.Outcome)
		assert.Equal(t, 1, api.updateCalls)
		assert.Zero(t, api.createCalls)
	})

	t.Run("rejects update of a rolled-back first create", func(t *testing.T) {
		api := &fakeAPI{
			describeFn: func(call int) (*cloudformation.DescribeStacksOutput, error) {
				return describedStack(cfntypes.StackStatusRollbackComplete), nil
			},
		}

		_, err := NewReconciler(api).Reconcile(context.Background(), req)
		var reconcileErr *ReconcileError
		require.ErrorAs(t, err, &reconcileErr)
		assert.Equal(t, "update", reconcileErr.Op)
		assert.Zero(t, api.updateCalls)
	})

	t.Run("create submission failure surfaces as reconcile error", func(t *testing.T) {
		api := &fakeAPI{
			describeFn: func(call int) (*cloudformation.DescribeStacksOutput, error) {
				return nil, notFoundErr()
			},
			createErr: &smithy.GenericAPIError{Code: "InsufficientCapabilities", Message: "requires CAPABILITY_NAMED_IAM"},
		}

		_, err := NewReconciler(api).Reconcile(context.Background(), req)
		var reconcileErr *ReconcileError
		require.ErrorAs(t, err, &reconcileErr)
		assert.Equal(t, "create", reconcileErr.Op)
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(notFoundErr()))
	assert.False(t, IsNotFound(&smithy.GenericAPIError{Code: "ValidationError", Message: "No updates are to be performed."}))
	assert.False(t, IsNotFound(nil))
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{
		describeFn: func(call int) (*cloudformation.DescribeStacksOutput, error) {
			return describedStack(cfntypes.StackStatusDeleteComplete), nil
		},
	}

	err := NewReconciler(api).Delete(context.Background(), "demo-stack", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, api.deleteCalls)
}

func TestEvents(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{
		describeFn: func(call int) (*cloudformation.DescribeStacksOutput, error) { return nil, nil },
		eventsOut: &cloudformation.DescribeStackEventsOutput{
			StackEvents: []cfntypes.StackEvent{
				{
					Timestamp:            aws.Time(now),
					LogicalResourceId:    aws.String("Service"),
					ResourceType:         aws.String("AWS::ECS::Service"),
					ResourceStatus:       cfntypes.ResourceStatusCreateFailed,
					ResourceStatusReason: aws.String("image not found"),
				},
				{
					Timestamp:         aws.Time(now.Add(-time.Minute)),
					LogicalResourceId: aws.String("Cluster"),
					ResourceType:      aws.String("AWS::ECS::Cluster"),
					ResourceStatus:    cfntypes.ResourceStatusCreateComplete,
				},
			},
		},
	}

	events, err := NewReconciler(api).Events(context.Background(), "demo-stack", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Service", events[0].LogicalID)
	assert.Equal(t, "image not found", events[0].Reason)
}
