package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// document is the persisted form of document-backed stores (file, s3)
type document struct {
	Entries map[string]string `json:"entries"`
}

// BaseStorage provides the shared in-memory key-value map for document-backed
// backends. It handles locking and rollback; concrete backends (FileStorage,
// S3Storage) embed it and provide their own persistence.
type BaseStorage struct {
	mu      sync.RWMutex
	entries map[string]string
	logger  *slog.Logger
}

// NewBaseStorage creates a new BaseStorage with no entries
func NewBaseStorage(logger *slog.Logger) *BaseStorage {
	return &BaseStorage{
		entries: make(map[string]string),
		logger:  logger,
	}
}

// PersistFunc is a callback function that backends implement for persistence.
// It is called with the lock held.
type PersistFunc func() error

// Len returns the number of stored keys
func (b *BaseStorage) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// MarshalData serializes the entries to JSON.
// NOTE: Caller must NOT hold the lock - this method acquires its own lock.
func (b *BaseStorage) MarshalData() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.marshalDataLocked()
}

// marshalDataLocked serializes entries without acquiring lock.
// Caller MUST hold at least a read lock.
func (b *BaseStorage) marshalDataLocked() ([]byte, error) {
	return json.MarshalIndent(document{Entries: b.entries}, "", "  ")
}

// UnmarshalData replaces the entries with the given JSON document
func (b *BaseStorage) UnmarshalData(jsonData []byte) error {
	var doc document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return err
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]string)
	}
	b.mu.Lock()
	b.entries = doc.Entries
	b.mu.Unlock()
	return nil
}

// GetString returns the value for key
func (b *BaseStorage) GetString(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, exists := b.entries[key]
	if !exists {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under key.
// The persist callback is called after the in-memory operation succeeds.
// If persist fails, the in-memory change is rolled back.
func (b *BaseStorage) Set(ctx context.Context, key, value string, persist PersistFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	previous, existed := b.entries[key]
	b.entries[key] = value

	if persist != nil {
		if err := persist(); err != nil {
			if existed {
				b.entries[key] = previous
			} else {
				delete(b.entries, key)
			}
			b.logger.Error("Storage write failed",
				"operation", "set",
				"key", key,
				"error", err)
			return unavailable(err)
		}
	}

	b.logger.Debug("Key stored", "key", key)
	return nil
}

// Delete removes key; absent keys are ignored and never trigger persistence.
// The persist callback is called after the in-memory operation succeeds.
func (b *BaseStorage) Delete(ctx context.Context, key string, persist PersistFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	previous, existed := b.entries[key]
	if !existed {
		return nil
	}
	delete(b.entries, key)

	if persist != nil {
		if err := persist(); err != nil {
			b.entries[key] = previous
			b.logger.Error("Storage write failed",
				"operation", "delete",
				"key", key,
				"error", err)
			return unavailable(err)
		}
	}

	b.logger.Debug("Key deleted", "key", key)
	return nil
}
