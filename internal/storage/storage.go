package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a key has no value
	ErrNotFound = errors.New("key not found")

	// ErrStorageUnavailable is returned when storage operations fail
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Store is a string key-value store.
// Implementations guarantee atomic single-key reads and writes; there are no
// multi-key transactions.
type Store interface {
	// GetString returns the value stored under key, or ErrNotFound
	GetString(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close releases backend resources
	Close() error
}

// unavailable marks err as ErrStorageUnavailable while keeping the cause
func unavailable(err error) error {
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// corruptName is where an unparsable document is moved before starting empty
func corruptName(name string, now time.Time) string {
	return name + ".corrupt-" + now.UTC().Format("20060102T150405Z")
}
