// Package credentials owns the per-platform OAuth credential records: it
// persists them, answers connectivity queries, and starts authorization flows.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/criteo/social-connect/internal/launcher"
	"github.com/criteo/social-connect/internal/models"
	"github.com/criteo/social-connect/internal/storage"
)

// Authorizer builds the provider authorization URL for a platform
type Authorizer interface {
	AuthorizationURL(p models.Platform) (string, error)
}

// Manager is the credential store and connection manager.
// It holds no credential state of its own; every query reads the store.
type Manager struct {
	store      storage.Store
	launcher   launcher.Launcher
	authorizer Authorizer
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock replaces time.Now for expiry checks
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager over store. launcher and authorizer are only
// needed by StartOAuthFlow and may be nil for read/write-only use.
func NewManager(store storage.Store, l launcher.Launcher, authorizer Authorizer, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		launcher:   l,
		authorizer: authorizer,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type loadOutcome int

const (
	outcomeFound loadOutcome = iota
	outcomeAbsent
	outcomeCorrupt
	outcomeUnavailable
)

func (o loadOutcome) String() string {
	switch o {
	case outcomeFound:
		return "found"
	case outcomeAbsent:
		return "absent"
	case outcomeCorrupt:
		return "corrupt"
	default:
		return "unavailable"
	}
}

type loadResult struct {
	outcome    loadOutcome
	credential *models.PlatformCredential
	err        error
}

// load is the only place a stored record is decoded. Every read path goes
// through it and treats anything but outcomeFound as "no credential".
func (m *Manager) load(ctx context.Context, p models.Platform) loadResult {
	raw, err := m.store.GetString(ctx, p.StorageKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return loadResult{outcome: outcomeAbsent}
		}
		return loadResult{outcome: outcomeUnavailable, err: err}
	}

	cred, err := models.UnmarshalCredential(raw)
	if err != nil {
		return loadResult{outcome: outcomeCorrupt, err: err}
	}
	if err := models.ValidateStoredCredential(cred); err != nil {
		return loadResult{outcome: outcomeCorrupt, err: err}
	}
	if cred.Platform != "" && cred.Platform != p {
		return loadResult{outcome: outcomeCorrupt, err: fmt.Errorf("record belongs to %s", cred.Platform)}
	}
	return loadResult{outcome: outcomeFound, credential: cred}
}

// GetStoredCredentials returns the stored credential for p, or nil when there
// is none. Corrupt records and read failures are logged and reported as nil.
func (m *Manager) GetStoredCredentials(ctx context.Context, p models.Platform) *models.PlatformCredential {
	if !p.Valid() {
		m.logger.Warn("Credential lookup for unsupported platform", "platform", string(p))
		return nil
	}

	res := m.load(ctx, p)
	switch res.outcome {
	case outcomeFound:
		return res.credential
	case outcomeAbsent:
		return nil
	default:
		m.logger.Error("Ignoring unreadable stored credential",
			"platform", p,
			"outcome", res.outcome.String(),
			"error", res.err)
		return nil
	}
}

// StoreCredentials writes cred under p's key, replacing any previous record.
// The stored record always carries platform p, so a credential stored without
// one reads back with Platform set. Invalid credentials are rejected before
// any write; a failed write returns a *StorageError and is not retried.
func (m *Manager) StoreCredentials(ctx context.Context, p models.Platform, cred *models.PlatformCredential) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnsupportedPlatform, string(p))
	}
	if err := models.ValidateCredential(cred); err != nil {
		return err
	}
	if cred.Platform != "" && cred.Platform != p {
		return &models.ValidationError{Field: "platform", Message: fmt.Sprintf("credential is for %s, not %s", cred.Platform, p)}
	}

	record := cred.Clone()
	record.Platform = p

	raw, err := models.MarshalCredential(record)
	if err != nil {
		return &StorageError{Platform: p, Op: "store", Err: err}
	}

	start := m.now()
	if err := m.store.Set(ctx, p.StorageKey(), raw); err != nil {
		m.logger.Error("Failed to store credentials",
			"platform", p,
			"error", err)
		return &StorageError{Platform: p, Op: "store", Err: err}
	}

	m.logger.Info("Credentials stored",
		"platform", p,
		"platform_username", record.PlatformUsername,
		"has_expiry", record.ExpiresAt != nil,
		"duration_ms", m.now().Sub(start).Milliseconds())
	return nil
}

// IsConnected reports whether p has a stored, unexpired credential
func (m *Manager) IsConnected(ctx context.Context, p models.Platform) bool {
	cred := m.GetStoredCredentials(ctx, p)
	return cred != nil && !cred.IsExpired(m.now())
}

// GetConnectedPlatforms returns the connected platforms in enumeration order
func (m *Manager) GetConnectedPlatforms(ctx context.Context) []models.Platform {
	connected := make([]models.Platform, 0, len(models.AllPlatforms()))
	for _, p := range models.AllPlatforms() {
		if m.IsConnected(ctx, p) {
			connected = append(connected, p)
		}
	}
	return connected
}

// RemoveCredentials deletes p's record. It never fails: a delete error is
// logged and the stale record may remain readable.
func (m *Manager) RemoveCredentials(ctx context.Context, p models.Platform) {
	if !p.Valid() {
		m.logger.Warn("Credential removal for unsupported platform", "platform", string(p))
		return
	}
	if err := m.store.Delete(ctx, p.StorageKey()); err != nil {
		m.logger.Error("Failed to remove credentials",
			"platform", p,
			"error", err)
		return
	}
	m.logger.Info("Credentials removed", "platform", p)
}

// GetPlatformConfig returns the static configuration for p
func (m *Manager) GetPlatformConfig(p models.Platform) (models.PlatformConfig, error) {
	return models.LookupPlatformConfig(p)
}

// Status returns the token-free connection view for p
func (m *Manager) Status(ctx context.Context, p models.Platform) (models.ConnectionStatus, error) {
	cfg, err := models.LookupPlatformConfig(p)
	if err != nil {
		return models.ConnectionStatus{}, err
	}

	status := models.ConnectionStatus{
		Platform: p,
		Name:     cfg.Name,
		Color:    cfg.Color,
	}
	cred := m.GetStoredCredentials(ctx, p)
	if cred == nil {
		return status, nil
	}

	status.Expired = cred.IsExpired(m.now())
	status.Connected = !status.Expired
	status.PlatformUserID = cred.PlatformUserID
	status.PlatformUsername = cred.PlatformUsername
	status.Scopes = cred.Scopes
	status.ExpiresAt = cred.ExpiresAt
	status.HasRefreshToken = cred.RefreshToken != ""
	return status, nil
}

// LaunchOAuthFlow builds p's authorization URL and hands it to the launcher.
// The URL is returned even when launching fails so callers can show it.
// Panics from the authorizer or launcher are recovered into errors.
func (m *Manager) LaunchOAuthFlow(ctx context.Context, p models.Platform) (authURL string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrLaunchFailed, r)
		}
		if err != nil {
			m.logger.Warn("OAuth flow not started",
				"platform", string(p),
				"error", err)
		}
	}()

	if _, err := models.LookupPlatformConfig(p); err != nil {
		return "", err
	}
	if m.authorizer == nil || m.launcher == nil {
		return "", fmt.Errorf("%w: no authorizer or launcher configured", ErrLaunchFailed)
	}

	authURL, err = m.authorizer.AuthorizationURL(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	ok, err := m.launcher.CanOpenURL(ctx, authURL)
	if err != nil {
		return authURL, fmt.Errorf("%w: capability check: %w", ErrLaunchFailed, err)
	}
	if !ok {
		return authURL, ErrNoURLHandler
	}

	if err := m.launcher.OpenURL(ctx, authURL); err != nil {
		return authURL, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}

	m.logger.Info("OAuth flow started", "platform", p)
	return authURL, nil
}

// StartOAuthFlow reports whether p's authorization URL was opened.
// It never returns an error and never panics.
func (m *Manager) StartOAuthFlow(ctx context.Context, p models.Platform) bool {
	_, err := m.LaunchOAuthFlow(ctx, p)
	return err == nil
}
