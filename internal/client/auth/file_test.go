//go:build !darwin

package auth

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStorage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := LoadStoredToken()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = LoadStoredURL()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SaveCredentials("http://127.0.0.1:8787", "alice:s3cret"))

	path, err := getConfigPath()
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	url, err := LoadStoredURL()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8787", url)
	token, err := LoadStoredToken()
	require.NoError(t, err)
	assert.Equal(t, "alice:s3cret", token)

	// A second login replaces the first
	require.NoError(t, SaveCredentials("http://127.0.0.1:9000", "bob:pw"))
	url, err = LoadStoredURL()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", url)

	require.NoError(t, DeleteCredentials())
	_, err = LoadStoredToken()
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent
	require.NoError(t, DeleteCredentials())
}

func TestLoadCredentials_Corrupt(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, writeConfig([]byte("url: [unterminated")))

	_, err := LoadCredentials()
	assert.ErrorContains(t, err, "failed to parse session file")
}
