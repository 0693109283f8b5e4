package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keychain service name used when the URI names none
const DefaultKeyringService = "social-connect"

// pingKey is never written; reading it only proves the keychain answers
const pingKey = "__ping__"

// KeyringStorage implements Store on top of the OS credential store
// (macOS Keychain, Windows Credential Manager, Secret Service on Linux).
// Each key is a separate keychain item so writes are atomic per key.
type KeyringStorage struct {
	service string
	logger  *slog.Logger
}

// NewKeyringStorage creates a keychain-backed store under the given service name
func NewKeyringStorage(service string, token string, logger *slog.Logger) (*KeyringStorage, error) {
	if service == "" {
		service = DefaultKeyringService
	}
	if token != "" {
		logger.Warn("Storage token provided but keyring storage does not use authentication",
			"service", service)
	}

	ks := &KeyringStorage{
		service: service,
		logger:  logger,
	}

	logger.Info("Keyring storage initialized", "service", service)
	return ks, nil
}

// GetString reads the keychain item for key
func (k *KeyringStorage) GetString(ctx context.Context, key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", unavailable(fmt.Errorf("failed to read %q from keyring: %w", key, err))
	}
	return value, nil
}

// Set writes the keychain item for key
func (k *KeyringStorage) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	if err := keyring.Set(k.service, key, value); err != nil {
		k.logger.Error("Keyring write failed",
			"service", k.service,
			"key", key,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return unavailable(fmt.Errorf("failed to write %q to keyring: %w", key, err))
	}
	k.logger.Debug("Key stored", "service", k.service, "key", key)
	return nil
}

// Delete removes the keychain item for key
func (k *KeyringStorage) Delete(ctx context.Context, key string) error {
	if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return unavailable(fmt.Errorf("failed to delete %q from keyring: %w", key, err))
	}
	return nil
}

// Ping reads a sentinel item; a not-found answer means the keychain is usable
func (k *KeyringStorage) Ping(ctx context.Context) error {
	_, err := k.GetString(ctx, pingKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Close is a no-op for keyring storage
func (k *KeyringStorage) Close() error {
	return nil
}
