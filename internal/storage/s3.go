package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// S3Storage implements Store as a single JSON document in an S3-compatible
// bucket. Reads are served from the document loaded at startup; every write
// uploads the whole document.
type S3Storage struct {
	*BaseStorage
	client *S3Client
	target S3Target
}

// NewS3Storage creates a new S3-backed storage.
// The uri should be a parsed S3 StorageURI (s3://endpoint/bucket/key or s3+http://...).
// The token should be in format ACCESS_KEY:SECRET_KEY.
func NewS3Storage(ctx context.Context, uri *StorageURI, token string, logger *slog.Logger) (*S3Storage, error) {
	target, err := S3TargetFromURI(uri, token)
	if err != nil {
		return nil, err
	}

	client, err := NewS3Client(target, logger)
	if err != nil {
		return nil, err
	}

	if err := client.ValidateBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 bucket validation failed: %w", err)
	}

	s := &S3Storage{
		BaseStorage: NewBaseStorage(logger),
		client:      client,
		target:      target,
	}

	if err := s.load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load credentials from S3: %w", err)
	}

	return s, nil
}

// load downloads the document, or uploads an empty one if the object is missing
func (s *S3Storage) load(ctx context.Context) error {
	exists, err := s.client.Exists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		s.logger.Info("S3 object does not exist, initializing empty storage",
			"bucket", s.target.Bucket,
			"key", s.target.Key)
		data, err := s.MarshalData()
		if err != nil {
			return err
		}
		return s.client.Upload(ctx, data)
	}

	data, err := s.client.Download(ctx)
	if err != nil {
		return err
	}
	if err := s.UnmarshalData(data); err != nil {
		return s.quarantine(ctx, data, err)
	}

	s.logger.Info("S3 storage loaded",
		"bucket", s.target.Bucket,
		"key", s.target.Key,
		"key_count", s.Len())
	return nil
}

// quarantine copies an unparsable document aside and replaces it with an
// empty one. If the copy fails the document is left untouched.
func (s *S3Storage) quarantine(ctx context.Context, data []byte, parseErr error) error {
	moved, err := s.client.UploadAside(ctx, corruptName("", time.Now()), data)
	if err != nil {
		return fmt.Errorf("failed to parse storage document (corrupted JSON): %w", parseErr)
	}
	s.logger.Error("S3 storage document is corrupt, starting empty",
		"bucket", s.target.Bucket,
		"key", s.target.Key,
		"moved_to", moved,
		"error", parseErr)

	empty, err := s.MarshalData()
	if err != nil {
		return err
	}
	return s.client.Upload(ctx, empty)
}

// persistWith returns a PersistFunc uploading the document under ctx.
// It runs with the BaseStorage lock held.
func (s *S3Storage) persistWith(ctx context.Context) PersistFunc {
	return func() error {
		data, err := s.marshalDataLocked()
		if err != nil {
			return fmt.Errorf("failed to marshal storage document: %w", err)
		}
		return s.client.Upload(ctx, data)
	}
}

// Set stores value under key and uploads the document
func (s *S3Storage) Set(ctx context.Context, key, value string) error {
	return s.BaseStorage.Set(ctx, key, value, s.persistWith(ctx))
}

// Delete removes key and uploads the document
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	return s.BaseStorage.Delete(ctx, key, s.persistWith(ctx))
}

// Ping checks that the bucket is still reachable
func (s *S3Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, S3PingTimeout)
	defer cancel()
	return s.client.ValidateBucket(ctx)
}

// Close closes the storage (no-op for S3 storage)
func (s *S3Storage) Close() error {
	return nil
}
