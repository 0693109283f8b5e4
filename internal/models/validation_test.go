package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredential(t *testing.T) {
	tests := []struct {
		name      string
		cred      *PlatformCredential
		wantField string
	}{
		{
			name: "minimal valid",
			cred: &PlatformCredential{AccessToken: "t1"},
		},
		{
			name: "full valid",
			cred: &PlatformCredential{
				Platform:         Instagram,
				AccessToken:      "t1",
				RefreshToken:     "r1",
				PlatformUserID:   "u1",
				PlatformUsername: "alice",
				Scopes:           []string{"read"},
			},
		},
		{
			name:      "nil credential",
			cred:      nil,
			wantField: "credential",
		},
		{
			name:      "missing access token",
			cred:      &PlatformCredential{PlatformUserID: "u1"},
			wantField: "accessToken",
		},
		{
			name:      "unknown platform",
			cred:      &PlatformCredential{Platform: "myspace", AccessToken: "t1"},
			wantField: "platform",
		},
		{
			name:      "blank scope",
			cred:      &PlatformCredential{AccessToken: "t1", Scopes: []string{"read", " "}},
			wantField: "scopes[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredential(tt.cred)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestValidateStoredCredential(t *testing.T) {
	assert.NoError(t, ValidateStoredCredential(&PlatformCredential{AccessToken: "t1", Scopes: []string{""}}))

	err := ValidateStoredCredential(&PlatformCredential{Scopes: []string{"read"}})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "accessToken", vErr.Field)

	err = ValidateStoredCredential(&PlatformCredential{Platform: "myspace", AccessToken: "t1"})
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "platform", vErr.Field)

	assert.Error(t, ValidateStoredCredential(nil))
}
