//go:build darwin

package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const keychainService = "social-connect-cli"

// sessionFile holds only the daemon URL; the token lives in the Keychain
type sessionFile struct {
	URL string `yaml:"url"`
}

// LoadStoredToken loads the token from the macOS Keychain
func LoadStoredToken() (string, error) {
	url, err := LoadStoredURL()
	if err != nil {
		return "", err
	}

	token, err := keyring.Get(keychainService, url)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get token from keychain: %w", err)
	}

	return token, nil
}

// LoadStoredURL loads the URL from the session file
func LoadStoredURL() (string, error) {
	path, err := getConfigPath()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read session file: %w", err)
	}

	var session sessionFile
	if err := yaml.Unmarshal(data, &session); err != nil {
		return "", fmt.Errorf("failed to parse session file: %w", err)
	}

	if session.URL == "" {
		return "", ErrNotFound
	}
	return session.URL, nil
}

// SaveCredentials writes the URL to the session file and the token to the Keychain
func SaveCredentials(url, token string) error {
	data, err := yaml.Marshal(&sessionFile{URL: url})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := writeConfig(data); err != nil {
		return err
	}

	if err := keyring.Set(keychainService, url, token); err != nil {
		return fmt.Errorf("failed to save token to keychain: %w", err)
	}
	return nil
}

// DeleteCredentials removes the Keychain token and the session file
func DeleteCredentials() error {
	if url, err := LoadStoredURL(); err == nil {
		if err := keyring.Delete(keychainService, url); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete token from keychain: %w", err)
		}
	}
	return removeConfig()
}
