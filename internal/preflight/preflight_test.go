// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unit

package preflight

import (
	"fmt"
	"testing"

	"github.com/caravel-sh/caravel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingChecker() *Checker {
	return &Checker{
		LookPath:     func(string) (string, error) { return "/usr/bin/docker", nil },
		FileNonEmpty: func(string) bool { return true },
		Getenv:       func(string) string { return "" },
		HomeDir:      func() (string, error) { return "/home/dev", nil },
	}
}

func TestCheck(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		d := config.NewDeployment("", "token", "", "", "")
		results := passingChecker().Check(d)
		assert.Len(t, results, 4)
		assert.Nil(t, First(results))
	})

	t.Run("missing docker reported as missing tool", func(t *testing.T) {
		c := passingChecker()
		c.LookPath = func(string) (string, error) { return "", fmt.Errorf("not found") }
		d := config.NewDeployment("", "token", "", "", "")

		err := First(c.Check(d))
		require.NotNil(t, err)
		assert.Equal(t, MissingTool, err.Kind)
		assert.Equal(t, "docker", err.Subject)
	})

	t.Run("missing template reported as missing input", func(t *testing.T) {
		c := passingChecker()
		c.Getenv = func(key string) string {
			if key == "AWS_PROFILE" {
				return "dev"
			}
			return ""
		}
		c.FileNonEmpty = func(string) bool { return false }
		d := config.NewDeployment("", "token", "", "", "")

		err := First(c.Check(d))
		require.NotNil(t, err)
		assert.Equal(t, MissingInput, err.Kind)
		assert.Equal(t, config.DefaultTemplatePath, err.Subject)
	})

	t.Run("missing credential argument fails before any remote call", func(t *testing.T) {
		d := config.NewDeployment("", "", "", "", "")
		err := First(passingChecker().Check(d))
		require.NotNil(t, err)
		assert.Equal(t, MissingInput, err.Kind)
		assert.Equal(t, "source access token", err.Subject)
	})

	t.Run("credentials accepted from environment", func(t *testing.T) {
		c := passingChecker()
		c.FileNonEmpty = func(path string) bool { return path == config.DefaultTemplatePath }
		c.Getenv = func(key string) string {
			if key == "AWS_ACCESS_KEY_ID" {
				return "AKIA..."
			}
			return ""
		}
		d := config.NewDeployment("", "token", "", "", "")
		assert.Nil(t, First(c.Check(d)))
	})

	t.Run("credentials accepted from shared credentials file", func(t *testing.T) {
		c := passingChecker()
		c.Getenv = func(string) string { return "" }
		c.FileNonEmpty = func(path string) bool {
			return path == config.DefaultTemplatePath || path == "/home/dev/.aws/credentials"
		}
		d := config.NewDeployment("", "token", "", "", "")
		assert.Nil(t, First(c.Check(d)))
	})
}
