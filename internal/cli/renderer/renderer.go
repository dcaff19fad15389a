// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package renderer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ddddddO/gtree"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/caravel-sh/caravel/internal/cli/display"
	"github.com/caravel-sh/caravel/internal/stack"
	"github.com/caravel-sh/caravel/internal/workflow"
)

func RenderSummary(s *workflow.Summary) (string, error) {
	var buf strings.Builder

	table := tablewriter.NewTable(&buf,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})))

	table.Header(display.LightBlue("Target"),
		"Region",
		"Stack",
		"Artifact",
		display.Green("Running"),
		display.LightBlue("Time"))

	data := [][]any{{
		display.LightBlue(s.Target),
		s.Region,
		coloredStackOutcome(s.StackOutcome, s.StackStatus),
		fmt.Sprintf("%s (%s)", strings.Join(s.Artifact.Tags, ", "), shortDigest(s.Artifact.Digest)),
		display.Green(fmt.Sprintf("%d/%d", s.RunningCount, s.DesiredCount)),
		display.LightBlue(s.Elapsed.String()),
	}}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("error formatting deployment summary: %v", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("error rendering deployment summary: %v", err)
	}

	endpoints, err := renderEndpointTree(s.Endpoints, s.Reachable)
	if err != nil {
		return "", err
	}

	return buf.String() + "\n" + endpoints, nil
}

func RenderSnapshot(s *workflow.Snapshot) (string, error) {
	var buf strings.Builder

	table := tablewriter.NewTable(&buf,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})))

	table.Header(display.LightBlue("Target"),
		"Region",
		"Stack",
		"Fleet",
		display.Green("Running"),
		display.Grey("Pending"))

	data := [][]any{{
		display.LightBlue(s.Target),
		s.Region,
		coloredStackStatus(s.StackStatus),
		s.FleetRef.String(),
		display.Green(fmt.Sprintf("%d/%d", s.Fleet.Running, s.Fleet.Desired)),
		display.Grey(fmt.Sprintf("%d", s.Fleet.Pending)),
	}}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("error formatting status: %v", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("error rendering status: %v", err)
	}

	result := buf.String()

	if len(s.Endpoints) > 0 {
		endpoints, err := renderEndpointTree(s.Endpoints, nil)
		if err != nil {
			return "", err
		}
		result += "\n" + endpoints
	}

	if len(s.Events) > 0 {
		events, err := RenderEvents(s.Events)
		if err != nil {
			return "", err
		}
		result += "\n" + display.Gold("Recent events:\n") + events
	}

	return result, nil
}

func RenderEvents(events []stack.Event) (string, error) {
	if len(events) == 0 {
		return display.Gold("No events found.\n"), nil
	}

	var buf strings.Builder

	table := tablewriter.NewTable(&buf,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})))

	table.Header(display.LightBlue("Time"),
		"Resource",
		"Type",
		"Status",
		display.Grey("Reason"))

	data := make([][]any, len(events))
	for i, e := range events {
		data[i] = []any{
			display.LightBlue(e.Timestamp.Format(time.DateTime)),
			e.LogicalID,
			display.Grey(e.ResourceType),
			coloredStackStatus(e.Status),
			display.Grey(e.Reason),
		}
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("error formatting events: %v", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("error rendering events: %v", err)
	}

	return buf.String(), nil
}

func renderEndpointTree(endpoints map[string]string, reachable map[string]bool) (string, error) {
	if len(endpoints) == 0 {
		return display.Gold("No endpoints reported by the stack.\n"), nil
	}

	root := gtree.NewRoot("Endpoints")

	keys := make([]string, 0, len(endpoints))
	for key := range endpoints {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		line := display.Grey(key+" ") + display.LightBlue(endpoints[key])
		if reachable != nil {
			if reachable[key] {
				line += display.Green(" (reachable)")
			} else {
				line += display.Gold(" (not reachable yet)")
			}
		}
		root.Add(line)
	}

	var buf strings.Builder
	if err := gtree.OutputFromRoot(&buf, root); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func coloredStackOutcome(outcome stack.Outcome, status string) string {
	switch outcome {
	case stack.OutcomeNoChange:
		return display.Grey("no change")
	case stack.OutcomeCreated:
		return display.Green("created") + display.Greyf(" (%s)", status)
	default:
		return display.Green("updated") + display.Greyf(" (%s)", status)
	}
}

func coloredStackStatus(status string) string {
	switch {
	case strings.HasSuffix(status, "ROLLBACK_COMPLETE"), strings.HasSuffix(status, "FAILED"):
		return display.Red(status)
	case strings.HasSuffix(status, "COMPLETE"):
		return display.Green(status)
	default:
		return display.Gold(status)
	}
}

func shortDigest(digest string) string {
	const visible = 19 // "sha256:" plus twelve hex characters
	if len(digest) <= visible {
		return digest
	}
	return digest[:visible]
}
