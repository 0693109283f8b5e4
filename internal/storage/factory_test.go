package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestOpen_Backends(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()

	tests := []struct {
		name string
		uri  string
		want any
	}{
		{"bare path", filepath.Join(dir, "a.json"), &FileStorage{}},
		{"file", "file://" + filepath.Join(dir, "b.json"), &FileStorage{}},
		{"memory", "memory://", &MemoryStorage{}},
		{"keyring", "keyring://social-connect-test", &KeyringStorage{}},
		{"sqlite", "sqlite://" + filepath.Join(dir, "c.db"), &SQLStorage{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(context.Background(), tt.uri, "", newTestLogger())
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			assert.IsType(t, tt.want, store)

			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "oauth_twitter", "v"))
			value, err := store.GetString(ctx, "oauth_twitter")
			require.NoError(t, err)
			assert.Equal(t, "v", value)
			assert.NoError(t, store.Ping(ctx))
		})
	}
}

func TestOpen_InvalidURI(t *testing.T) {
	_, err := Open(context.Background(), "oci://example.com/repo", "", newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid storage URI")
}

func TestNewStorage_S3RoutesToS3(t *testing.T) {
	_, srv := newFakeS3(t, "creds")

	store, err := NewStorage(context.Background(), fakeS3URI(t, srv, "creds", "credentials.json"), "access:secret", newTestLogger())
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, store)
}

func TestNewStorage_UnknownScheme(t *testing.T) {
	_, err := NewStorage(context.Background(), &StorageURI{Scheme: "ftp"}, "", newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage scheme")
}
