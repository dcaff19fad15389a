// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
)

const probeTimeout = 10 * time.Second

// EndpointProbe checks whether a reported endpoint answers HTTP. The
// result is informational only; an unreachable endpoint never fails the
// deployment (replicas may sit behind a warming load balancer).
type EndpointProbe struct {
	timeout time.Duration
}

func NewEndpointProbe() *EndpointProbe {
	return &EndpointProbe{timeout: probeTimeout}
}

func (p *EndpointProbe) Probe(ctx context.Context, url string) error {
	client := resty.New().SetTimeout(p.timeout)
	defer client.Close()

	res, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("endpoint %s returned %s", url, res.Status())
	}

	return nil
}
