// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package stack

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// Event is one entry of the remote engine's event history, newest first.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	LogicalID    string    `json:"logicalId"`
	ResourceType string    `json:"resourceType"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
}

// Events returns up to limit recent events for the stack, newest first.
func (r *Reconciler) Events(ctx context.Context, name string, limit int) ([]Event, error) {
	out, err := r.client.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(name),
	})
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(out.StackEvents))
	for _, e := range out.StackEvents {
		if limit > 0 && len(events) >= limit {
			break
		}
		events = append(events, Event{
			Timestamp:    aws.ToTime(e.Timestamp),
			LogicalID:    aws.ToString(e.LogicalResourceId),
			ResourceType: aws.ToString(e.ResourceType),
			Status:       string(e.ResourceStatus),
			Reason:       aws.ToString(e.ResourceStatusReason),
		})
	}

	return events, nil
}
