// © 2025 Caravel Contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/ksuid"
)

const (
	ConfigDirectory = ".config/caravel"
	DataDirectory   = ".caravel"
)

var CLI = cliconfig{}

type cliconfig struct{}

func (cliconfig) ConfigDirectory() string {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(homePath, ConfigDirectory)
}

func (cliconfig) DataDirectory() string {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(homePath, DataDirectory)
}

func (cliconfig) EnsureConfigDirectory() error {
	configPath := CLI.ConfigDirectory()
	if configPath == "" {
		return fmt.Errorf("failed to ensure caravel config directory")
	}

	return os.MkdirAll(configPath, 0700)
}

func (cliconfig) EnsureDataDirectory() error {
	dataPath := CLI.DataDirectory()
	if dataPath == "" {
		return fmt.Errorf("failed to ensure caravel data directory")
	}

	return os.MkdirAll(dataPath, 0700)
}

func (cliconfig) EnsureClientID() error {
	dataPath := CLI.DataDirectory()
	if dataPath == "" {
		return fmt.Errorf("failed to ensure caravel directory")
	}

	idFile := filepath.Join(dataPath, "cli_client_id")
	if _, err := os.Stat(idFile); os.IsNotExist(err) {
		err := os.WriteFile(idFile, []byte(ksuid.New().String()), 0600)
		if err != nil {
			return fmt.Errorf("failed to create ID file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check ID file: %w", err)
	}

	return nil
}

func (cliconfig) ClientID() (string, error) {
	dataPath := CLI.DataDirectory()
	if dataPath == "" {
		return "", fmt.Errorf("failed to retrieve caravel directory")
	}

	clientIDFile := filepath.Join(dataPath, "cli_client_id")
	data, err := os.ReadFile(clientIDFile)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}
