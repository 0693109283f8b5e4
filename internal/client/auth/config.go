package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Platform-specific session storage:
// - file.go: URL and token in a 0600 YAML file
// - keyring_darwin.go: URL in the file, token in the macOS Keychain

var ErrNotFound = errors.New("credentials not found")

const (
	configDir  = ".config/social-connect"
	configFile = "session.yaml"
)

// getConfigPath returns the path to the session file
func getConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir, configFile), nil
}

// writeConfig writes data to the session file, creating its directory
func writeConfig(data []byte) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// removeConfig deletes the session file; a missing file is not an error
func removeConfig() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
