// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package preflight verifies local tooling and inputs before any remote
// state is touched. Every check is local: no network call is made here,
// so a missing input fails before the first remote request.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/caravel-sh/caravel/internal/config"
	"github.com/caravel-sh/caravel/internal/util"
)

type ErrorKind int

const (
	// MissingTool means a required executable is not reachable on PATH.
	MissingTool ErrorKind = iota
	// MissingInput means a required file, argument or credential is absent.
	MissingInput
)

type Error struct {
	Kind    ErrorKind
	Subject string
	Hint    string
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingTool:
		return fmt.Sprintf("required tool %q is not available: %s", e.Subject, e.Hint)
	default:
		return fmt.Sprintf("required input %q is missing: %s", e.Subject, e.Hint)
	}
}

// Result is the outcome of a single named check.
type Result struct {
	Name string
	Err  *Error
}

// Checker runs the precondition checks. The probe functions default to
// the real filesystem and PATH and are replaceable in tests.
type Checker struct {
	LookPath     func(file string) (string, error)
	FileNonEmpty func(path string) bool
	Getenv       func(key string) string
	HomeDir      func() (string, error)
}

func NewChecker() *Checker {
	return &Checker{
		LookPath:     exec.LookPath,
		FileNonEmpty: util.FileNonEmpty,
		Getenv:       os.Getenv,
		HomeDir:      os.UserHomeDir,
	}
}

// Check runs all precondition checks against the deployment inputs and
// returns one result per check, in execution order.
func (c *Checker) Check(d config.Deployment) []Result {
	return []Result{
		{Name: "docker available", Err: c.checkTool("docker")},
		{Name: "cloud credentials configured", Err: c.checkCloudCredentials()},
		{Name: "stack template present", Err: c.checkTemplate(d.TemplatePath)},
		{Name: "source access token provided", Err: c.checkCredential(d.Credential)},
	}
}

// First returns the first failed check, or nil when all passed.
func First(results []Result) *Error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}

	return nil
}

func (c *Checker) checkTool(name string) *Error {
	if _, err := c.LookPath(name); err != nil {
		return &Error{
			Kind:    MissingTool,
			Subject: name,
			Hint:    fmt.Sprintf("install %s and make sure it is on your PATH", name),
		}
	}

	return nil
}

// checkCloudCredentials only verifies that a credential source exists
// locally. Whether the credentials are valid is decided remotely, later.
func (c *Checker) checkCloudCredentials() *Error {
	for _, key := range []string{"AWS_ACCESS_KEY_ID", "AWS_PROFILE", "AWS_ROLE_ARN", "AWS_CONTAINER_CREDENTIALS_RELATIVE_URI"} {
		if c.Getenv(key) != "" {
			return nil
		}
	}

	if home, err := c.HomeDir(); err == nil {
		for _, file := range []string{"credentials", "config"} {
			if c.FileNonEmpty(filepath.Join(home, ".aws", file)) {
				return nil
			}
		}
	}

	return &Error{
		Kind:    MissingInput,
		Subject: "cloud credentials",
		Hint:    "configure credentials via environment variables or the shared credentials file",
	}
}

func (c *Checker) checkTemplate(path string) *Error {
	if !c.FileNonEmpty(path) {
		return &Error{
			Kind:    MissingInput,
			Subject: path,
			Hint:    "the stack template must exist and be non-empty",
		}
	}

	return nil
}

func (c *Checker) checkCredential(credential string) *Error {
	if credential == "" {
		return &Error{
			Kind:    MissingInput,
			Subject: "source access token",
			Hint:    "pass the token as the second positional argument",
		}
	}

	return nil
}
