// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package usage

import "os"

// OptOutEnvVar disables usage reporting entirely when set to any
// non-empty value.
const OptOutEnvVar = "CARAVEL_NO_TELEMETRY"

// Report is one anonymous usage event per CLI invocation. No stack
// names, repository names, or credentials ever leave the machine.
type Report struct {
	ClientID   string
	Command    string
	Outcome    string
	Region     string
	DurationMs int64
	Version    string
}

type Sender interface {
	SendReport(report *Report) error
}

// NoopSender drops every report. Used when the user opted out.
type NoopSender struct{}

func (NoopSender) SendReport(report *Report) error {
	return nil
}

// NewSender returns the PostHog-backed sender, or a NoopSender when
// reporting is disabled via the environment.
func NewSender() (Sender, error) {
	if os.Getenv(OptOutEnvVar) != "" {
		return NoopSender{}, nil
	}

	return NewPostHogSender()
}
