package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStorage_RoundTrip(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	ks, err := NewKeyringStorage("social-connect-test", "", newTestLogger())
	require.NoError(t, err)

	_, err = ks.GetString(ctx, "oauth_facebook")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ks.Set(ctx, "oauth_facebook", "secret"))
	value, err := ks.GetString(ctx, "oauth_facebook")
	require.NoError(t, err)
	assert.Equal(t, "secret", value)

	require.NoError(t, ks.Delete(ctx, "oauth_facebook"))
	require.NoError(t, ks.Delete(ctx, "oauth_facebook"))
	_, err = ks.GetString(ctx, "oauth_facebook")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringStorage_DefaultService(t *testing.T) {
	keyring.MockInit()

	ks, err := NewKeyringStorage("", "", newTestLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyringService, ks.service)
	assert.NoError(t, ks.Ping(context.Background()))
}

func TestKeyringStorage_BackendErrorIsUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("keychain locked"))
	t.Cleanup(keyring.MockInit)
	ctx := context.Background()

	ks, err := NewKeyringStorage("svc", "", newTestLogger())
	require.NoError(t, err)

	_, err = ks.GetString(ctx, "k")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, ks.Set(ctx, "k", "v"), ErrStorageUnavailable)
	assert.ErrorIs(t, ks.Ping(ctx), ErrStorageUnavailable)
}
