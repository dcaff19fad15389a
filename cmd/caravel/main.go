// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/caravel-sh/caravel/internal/cli"
	"github.com/caravel-sh/caravel/internal/logging"
)

func main() {
	logging.SetupInitialLogging()
	cli.Start()
}
