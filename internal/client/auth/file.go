//go:build !darwin

package auth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Credentials is the daemon session stored on disk
type Credentials struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// LoadCredentials loads the session from the file
func LoadCredentials() (*Credentials, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return &creds, nil
}

// SaveCredentials replaces the stored session
func SaveCredentials(url, token string) error {
	data, err := yaml.Marshal(&Credentials{URL: url, Token: token})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return writeConfig(data)
}

// DeleteCredentials removes the session file
func DeleteCredentials() error {
	return removeConfig()
}

// LoadStoredToken loads just the token from the session
func LoadStoredToken() (string, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return "", err
	}
	if creds.Token == "" {
		return "", ErrNotFound
	}
	return creds.Token, nil
}

// LoadStoredURL loads just the URL from the session
func LoadStoredURL() (string, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return "", err
	}
	if creds.URL == "" {
		return "", ErrNotFound
	}
	return creds.URL, nil
}
