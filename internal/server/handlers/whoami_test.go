package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/criteo/social-connect/internal/auth"
)

func newBasicAuth(t *testing.T) *auth.BasicAuth {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "users.yaml")
	content := "users:\n  - username: alice\n    password: \"" + string(hash) + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	a, err := auth.NewBasicAuth(path, discardLogger())
	require.NoError(t, err)
	return a
}

func TestWhoamiHandler_GetWhoami(t *testing.T) {
	basic := newBasicAuth(t)

	tests := []struct {
		name          string
		authenticator auth.Authenticator
		user, pass    string
		wantStatus    int
		wantUsername  string
	}{
		{"valid credentials", basic, "alice", "s3cret", http.StatusOK, "alice"},
		{"missing credentials", basic, "", "", http.StatusUnauthorized, ""},
		{"wrong password", basic, "alice", "hunter2", http.StatusUnauthorized, ""},
		{"unknown user", basic, "mallory", "s3cret", http.StatusUnauthorized, ""},
		{"auth disabled", auth.NewNoAuth(), "", "", http.StatusOK, "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := 0
			h := NewWhoamiHandler(tt.authenticator, func() { failures++ }, discardLogger())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rr := httptest.NewRecorder()
			h.GetWhoami(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, `Basic realm="Social Connect"`, rr.Header().Get("WWW-Authenticate"))
				assert.Contains(t, rr.Body.String(), `"code":"UNAUTHORIZED"`)
				assert.Equal(t, 1, failures)
				return
			}

			var resp WhoamiResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantUsername, resp.Username)
			assert.Zero(t, failures)
		})
	}
}
