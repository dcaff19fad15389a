// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package caravel

// Version set at compile time via -ldflags.
var Version = "0.0.0"

const ProjectRepository = "https://github.com/caravel-sh/caravel"
