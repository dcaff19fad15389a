// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package registry

import "fmt"

// RegistryOutputKey is the stack output that carries an explicit
// repository URI. When present it wins over the derived address.
const RegistryOutputKey = "RegistryUri"

// DeriveAddress builds the deterministic repository address from the
// account, region and repository name.
func DeriveAddress(account, region, repository string) string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/%s", account, region, repository)
}

// ResolveAddress prefers a discovered repository address and falls back
// to the derived one.
func ResolveAddress(discovered, account, region, repository string) string {
	if discovered != "" {
		return discovered
	}

	return DeriveAddress(account, region, repository)
}
