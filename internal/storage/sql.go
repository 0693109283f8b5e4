package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const sqlPingTimeout = 5 * time.Second

// kvEntry is one row of the key-value table
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string {
	return "social_connect_kv"
}

// SQLStorage implements Store on a single key-value table through GORM.
// Each key is its own row so writes are atomic per key.
type SQLStorage struct {
	db     *gorm.DB
	driver string
	logger *slog.Logger
}

// NewSQLStorage opens the database named by a sqlite:// or postgres:// URI
// and creates the key-value table if needed
func NewSQLStorage(ctx context.Context, uri *StorageURI, logger *slog.Logger) (*SQLStorage, error) {
	var dialector gorm.Dialector
	switch uri.Scheme {
	case "sqlite":
		if dir := filepath.Dir(uri.Path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
		dialector = sqlite.Open(uri.Path)
	case "postgres":
		dialector = postgres.Open(uri.Raw)
	default:
		return nil, fmt.Errorf("expected sqlite or postgres URI, got scheme: %s", uri.Scheme)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", uri.Scheme, err)
	}

	s := &SQLStorage{db: db, driver: uri.Scheme, logger: logger}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(&kvEntry{}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to migrate %s storage: %w", uri.Scheme, err)
	}

	logger.Info("SQL storage initialized", "driver", uri.Scheme)
	return s, nil
}

// GetString returns the value stored under key
func (s *SQLStorage) GetString(ctx context.Context, key string) (string, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", unavailable(fmt.Errorf("failed to read %q: %w", key, err))
	}
	return entry.Value, nil
}

// Set upserts the row for key
func (s *SQLStorage) Set(ctx context.Context, key, value string) error {
	entry := kvEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		s.logger.Error("Storage write failed",
			"driver", s.driver,
			"operation", "set",
			"key", key,
			"error", err)
		return unavailable(fmt.Errorf("failed to write %q: %w", key, err))
	}
	s.logger.Debug("Key stored", "driver", s.driver, "key", key)
	return nil
}

// Delete removes the row for key
func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		s.logger.Error("Storage write failed",
			"driver", s.driver,
			"operation", "delete",
			"key", key,
			"error", err)
		return unavailable(fmt.Errorf("failed to delete %q: %w", key, err))
	}
	return nil
}

// Ping checks the database connection
func (s *SQLStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable(err)
	}
	ctx, cancel := context.WithTimeout(ctx, sqlPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable(fmt.Errorf("ping %s: %w", s.driver, err))
	}
	return nil
}

// Close closes the underlying connection pool
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
