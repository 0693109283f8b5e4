package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileStorage implements Store as a single JSON document on local disk.
// Credentials are secrets, so the file and its directory are owner-only.
type FileStorage struct {
	*BaseStorage
	filePath string
}

// NewFileStorage creates a new file-based storage
// The token parameter is accepted but ignored for file storage (for interface compatibility)
func NewFileStorage(filePath string, token string, logger *slog.Logger) (*FileStorage, error) {
	if token != "" {
		logger.Warn("Storage token provided but file storage does not use authentication",
			"file_path", filePath)
	}

	fs := &FileStorage{
		BaseStorage: NewBaseStorage(logger),
		filePath:    filePath,
	}

	if err := fs.load(); err != nil {
		return nil, fmt.Errorf("failed to load storage: %w", err)
	}

	return fs, nil
}

// load reads storage from file or creates empty storage
func (fs *FileStorage) load() error {
	if _, err := os.Stat(fs.filePath); os.IsNotExist(err) {
		fs.logger.Info("Storage file not found, creating empty storage",
			"file_path", fs.filePath)

		dir := filepath.Dir(fs.filePath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}

		fs.mu.RLock()
		defer fs.mu.RUnlock()
		if err := fs.saveToFile(); err != nil {
			return fmt.Errorf("failed to create storage file: %w", err)
		}
		return nil
	}

	fileData, err := os.ReadFile(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to read storage file: %w", err)
	}

	if err := fs.UnmarshalData(fileData); err != nil {
		return fs.quarantine(err)
	}

	fs.logger.Info("Storage file loaded",
		"file_path", fs.filePath,
		"key_count", fs.Len())

	return nil
}

// quarantine moves an unparsable storage file aside and starts empty
func (fs *FileStorage) quarantine(parseErr error) error {
	moved := corruptName(fs.filePath, time.Now())
	if err := os.Rename(fs.filePath, moved); err != nil {
		return fmt.Errorf("failed to parse storage file (invalid JSON syntax): %w", parseErr)
	}
	fs.logger.Error("Storage file is corrupt, starting empty",
		"file_path", fs.filePath,
		"moved_to", moved,
		"error", parseErr)

	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if err := fs.saveToFile(); err != nil {
		return fmt.Errorf("failed to create storage file: %w", err)
	}
	return nil
}

// saveToFile writes data to file atomically (temp file + rename).
// Caller MUST hold at least a read lock.
func (fs *FileStorage) saveToFile() error {
	jsonData, err := fs.marshalDataLocked()
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	// Create temp file in same directory so the rename stays on one filesystem
	dir := filepath.Dir(fs.filePath)
	tempFile, err := os.CreateTemp(dir, ".credentials-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if err := tempFile.Chmod(0600); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	if _, err := tempFile.Write(jsonData); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tempFile = nil // Prevent deferred cleanup

	if err := os.Rename(tempPath, fs.filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Set stores value under key and rewrites the file
func (fs *FileStorage) Set(ctx context.Context, key, value string) error {
	return fs.BaseStorage.Set(ctx, key, value, fs.saveToFile)
}

// Delete removes key and rewrites the file
func (fs *FileStorage) Delete(ctx context.Context, key string) error {
	return fs.BaseStorage.Delete(ctx, key, fs.saveToFile)
}

// Ping checks that the storage directory is still reachable
func (fs *FileStorage) Ping(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(fs.filePath)); err != nil {
		return unavailable(fmt.Errorf("storage directory: %w", err))
	}
	return nil
}

// Close closes the storage (no-op for file storage)
func (fs *FileStorage) Close() error {
	return nil
}

// MemoryStorage is a process-local Store with no persistence
type MemoryStorage struct {
	*BaseStorage
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage(logger *slog.Logger) *MemoryStorage {
	return &MemoryStorage{BaseStorage: NewBaseStorage(logger)}
}

// Set stores value under key
func (m *MemoryStorage) Set(ctx context.Context, key, value string) error {
	return m.BaseStorage.Set(ctx, key, value, nil)
}

// Delete removes key
func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	return m.BaseStorage.Delete(ctx, key, nil)
}

// Ping always succeeds
func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (m *MemoryStorage) Close() error {
	return nil
}
