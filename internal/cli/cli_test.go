package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/criteo/social-connect/internal/auth"
	"github.com/criteo/social-connect/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHashPassword_FromPipe(t *testing.T) {
	t.Cleanup(func() { hashUsername = "" })

	var out bytes.Buffer
	HashPasswordCmd.SetIn(strings.NewReader("hunter2\n"))
	HashPasswordCmd.SetOut(&out)
	HashPasswordCmd.SetErr(io.Discard)

	require.NoError(t, runHashPassword(HashPasswordCmd, nil))
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}

func TestHashPassword_UsersEntry(t *testing.T) {
	hashUsername = "alice"
	t.Cleanup(func() { hashUsername = "" })

	var out bytes.Buffer
	HashPasswordCmd.SetIn(strings.NewReader("s3cret"))
	HashPasswordCmd.SetOut(&out)

	require.NoError(t, runHashPassword(HashPasswordCmd, nil))

	var users auth.UsersFile
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &users))
	require.Len(t, users.Users, 1)
	assert.Equal(t, "alice", users.Users[0].Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.Users[0].Password), []byte("s3cret")))
}

func TestHashPassword_Empty(t *testing.T) {
	HashPasswordCmd.SetIn(strings.NewReader("\n"))
	assert.ErrorContains(t, runHashPassword(HashPasswordCmd, nil), "cannot be empty")
}

func TestBuildServer(t *testing.T) {
	dir := t.TempDir()
	clientsFile := filepath.Join(dir, "clients.yaml")
	require.NoError(t, os.WriteFile(clientsFile, []byte("clients:\n  twitter:\n    client_id: tw-client\n"), 0600))

	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 8787},
		Storage: config.StorageConfig{URI: "file://" + filepath.Join(dir, "credentials.json")},
		Auth:    config.AuthConfig{Type: "none"},
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
		OAuth: config.OAuthConfig{
			RedirectBaseURL: "http://127.0.0.1:8787",
			ClientsFile:     clientsFile,
			StateTTL:        time.Minute,
			Launcher:        "print",
		},
	}
	require.NoError(t, cfg.Validate())

	srv, err := buildServer(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	router := srv.Router()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/platforms/twitter", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"oauthConfigured":true`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/platforms/facebook/credentials", strings.NewReader(`{"accessToken":"fb"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/platforms/connected", nil))
	assert.JSONEq(t, `{"platforms":["facebook"]}`, rr.Body.String())

	// A forged state never reaches the store
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth/callback/twitter?code=c&state=forged", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	data, err := os.ReadFile(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "oauth_facebook")
	assert.NotContains(t, string(data), "oauth_twitter")
}

func TestBuildServer_Errors(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Storage: config.StorageConfig{URI: "memory://"},
			Auth:    config.AuthConfig{Type: "none"},
			OAuth:   config.OAuthConfig{RedirectBaseURL: "http://127.0.0.1:8787", StateTTL: time.Minute, Launcher: "print"},
		}
	}

	cfg := base()
	cfg.Auth = config.AuthConfig{Type: "basic", UsersFile: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := buildServer(context.Background(), cfg, discardLogger())
	assert.ErrorContains(t, err, "failed to initialize authentication")

	cfg = base()
	cfg.OAuth.ClientsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = buildServer(context.Background(), cfg, discardLogger())
	assert.ErrorContains(t, err, "failed to load OAuth clients")

	cfg = base()
	cfg.Storage.URI = "bogus://x"
	_, err = buildServer(context.Background(), cfg, discardLogger())
	assert.ErrorContains(t, err, "failed to initialize storage")
}
