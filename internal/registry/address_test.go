// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unit

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDeriveAddress(t *testing.T) {
	assert.Equal(t,
		"123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app",
		DeriveAddress("123456789012", "us-east-1", "demo-app"))
}

func TestResolveAddress(t *testing.T) {
	t.Run("prefers the discovered address", func(t *testing.T) {
		assert.Equal(t, "registry.example.com/demo-app",
			ResolveAddress("registry.example.com/demo-app", "123456789012", "us-east-1", "demo-app"))
	})

	t.Run("falls back to the derived address", func(t *testing.T) {
		assert.Equal(t,
			"123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app",
			ResolveAddress("", "123456789012", "us-east-1", "demo-app"))
	})
}

func TestResolveAddressProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		account := rapid.StringMatching(`[0-9]{12}`).Draw(t, "account")
		region := rapid.SampledFrom([]string{"us-east-1", "eu-west-1", "ap-southeast-2"}).Draw(t, "region")
		repository := rapid.StringMatching(`[a-z][a-z0-9-]{0,30}`).Draw(t, "repository")
		discovered := rapid.StringMatching(`[a-z0-9.\-/]*`).Draw(t, "discovered")

		resolved := ResolveAddress(discovered, account, region, repository)
		if discovered != "" {
			// any non-empty discovered address wins over derivation
			if resolved != discovered {
				t.Fatalf("expected discovered address %q, got %q", discovered, resolved)
			}
		} else if resolved != DeriveAddress(account, region, repository) {
			t.Fatalf("expected derived address, got %q", resolved)
		}
	})
}
