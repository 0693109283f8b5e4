package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// NewStorage creates a storage backend based on the URI scheme:
//   - file:// -> FileStorage
//   - memory:// -> MemoryStorage
//   - keyring://<service> -> KeyringStorage
//   - s3:// or s3+http:// -> S3Storage
//   - sqlite:// or postgres:// -> SQLStorage
func NewStorage(ctx context.Context, uri *StorageURI, token string, logger *slog.Logger) (Store, error) {
	switch uri.Scheme {
	case "file":
		return NewFileStorage(uri.Path, token, logger)

	case "memory":
		return NewMemoryStorage(logger), nil

	case "keyring":
		return NewKeyringStorage(uri.KeyringService(), token, logger)

	case "s3", "s3+http":
		// Credentials optional for IAM role
		return NewS3Storage(ctx, uri, token, logger)

	case "sqlite", "postgres":
		if token != "" {
			logger.Warn("Storage token provided but SQL storage reads credentials from the URI",
				"driver", uri.Scheme)
		}
		return NewSQLStorage(ctx, uri, logger)

	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s", uri.Scheme)
	}
}

// Open parses rawURI and creates the matching backend
func Open(ctx context.Context, rawURI, token string, logger *slog.Logger) (Store, error) {
	uri, err := ParseStorageURI(rawURI)
	if err != nil {
		return nil, fmt.Errorf("invalid storage URI: %w", err)
	}
	return NewStorage(ctx, uri, token, logger)
}
