package storage

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStorage_CreatesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	fs, err := NewFileStorage(path, "", newTestLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, fs.Len())

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestFileStorage_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	ctx := context.Background()

	fs, err := NewFileStorage(path, "", newTestLogger())
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, "oauth_linkedin", "v1"))
	require.NoError(t, fs.Set(ctx, "oauth_tiktok", "v2"))
	require.NoError(t, fs.Delete(ctx, "oauth_tiktok"))

	reopened, err := NewFileStorage(path, "", newTestLogger())
	require.NoError(t, err)

	value, err := reopened.GetString(ctx, "oauth_linkedin")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	_, err = reopened.GetString(ctx, "oauth_tiktok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorage_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(filepath.Join(dir, "credentials.json"), "", newTestLogger())
	require.NoError(t, err)
	require.NoError(t, fs.Set(context.Background(), "k", "v"))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestNewFileStorage_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0600))

	fs, err := NewFileStorage(path, "", newTestLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, fs.Len())

	_, err = fs.GetString(context.Background(), "oauth_instagram")
	assert.ErrorIs(t, err, ErrNotFound)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries":{}}`, string(data))

	moved, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	original, err := os.ReadFile(moved[0])
	require.NoError(t, err)
	assert.Equal(t, "{garbage", string(original))
}

func TestNewFileStorage_InvalidJSONUnmovable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0600))
	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

	_, err := NewFileStorage(path, "", newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON syntax")
}

func TestFileStorage_WriteFailureIsUnavailable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	dir := t.TempDir()
	fs, err := NewFileStorage(filepath.Join(dir, "credentials.json"), "", newTestLogger())
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

	err = fs.Set(context.Background(), "k", "v")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = fs.GetString(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorage_Ping(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	fs, err := NewFileStorage(filepath.Join(dir, "credentials.json"), "", newTestLogger())
	require.NoError(t, err)
	require.NoError(t, fs.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	assert.ErrorIs(t, fs.Ping(context.Background()), ErrStorageUnavailable)
}

func TestMemoryStorage(t *testing.T) {
	ms := NewMemoryStorage(newTestLogger())
	ctx := context.Background()

	require.NoError(t, ms.Set(ctx, "k", "v"))
	value, err := ms.GetString(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	require.NoError(t, ms.Delete(ctx, "k"))
	require.NoError(t, ms.Delete(ctx, "k"))
	_, err = ms.GetString(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, ms.Ping(ctx))
}
