// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package usage

import (
	"reflect"
	"time"

	"github.com/caravel-sh/caravel/internal/logging"
	posthog "github.com/posthog/posthog-go"
)

const (
	APIKey      = "phc_Jk2RfmWqyBXefH1wC8N9uTQpGvrLs5dZoOYxMA0i4Ke"
	APIEndpoint = "https://us.i.posthog.com"
)

type PostHogSender struct {
}

func NewPostHogSender() (Sender, error) {
	return PostHogSender{}, nil
}

func (s PostHogSender) SendReport(report *Report) error {
	client, err := posthog.NewWithConfig(APIKey, posthog.Config{Endpoint: APIEndpoint, Logger: &logging.PosthogLogger{}})
	if err == nil && client != nil {
		defer func() { _ = client.Close() }()

		event := posthog.Capture{
			DistinctId: report.ClientID,
			Event:      "cli",
			Timestamp:  time.Now(),
			Properties: map[string]any{
				"$process_person_profile": false,
			},
		}

		reportValue := reflect.ValueOf(report).Elem()
		reportType := reportValue.Type()

		for i := 0; i < reportValue.NumField(); i++ {
			field := reportType.Field(i)
			key := field.Name
			value := reportValue.Field(i).Interface()
			event.Properties[key] = value
		}

		err = client.Enqueue(event)
	}

	return err
}
