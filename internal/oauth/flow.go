// Package oauth runs the provider side of a platform connection: it builds
// authorization URLs, remembers pending flows, and turns callbacks into
// stored credentials.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"

	"github.com/criteo/social-connect/internal/models"
)

const (
	// DefaultStateTTL bounds how long a started flow can be completed
	DefaultStateTTL = 10 * time.Minute

	// DefaultMaxPending caps the number of flows waiting for a callback
	DefaultMaxPending = 256

	// CallbackPath is the loopback redirect path prefix; the platform is appended
	CallbackPath = "/oauth/callback/"

	exchangeTimeout = 30 * time.Second
)

// libraryEndpoints are provider endpoints maintained by golang.org/x/oauth2
var libraryEndpoints = map[models.Platform]oauth2.Endpoint{
	models.YouTube:  google.Endpoint,
	models.LinkedIn: linkedin.Endpoint,
}

// CredentialStore persists a completed credential
type CredentialStore interface {
	StoreCredentials(ctx context.Context, p models.Platform, cred *models.PlatformCredential) error
}

// Config configures a Flow
type Config struct {
	Clients         Clients
	RedirectBaseURL string
	StateTTL        time.Duration
	MaxPending      int
	HTTPClient      *http.Client
	Profiles        ProfileResolver
}

type pendingFlow struct {
	platform  models.Platform
	verifier  string
	startedAt time.Time
}

// Flow builds authorization URLs and completes callbacks.
// It is safe for concurrent use.
type Flow struct {
	clients      Clients
	redirectBase string
	httpClient   *http.Client
	profiles     ProfileResolver
	logger       *slog.Logger

	mu      sync.Mutex
	pending *expirable.LRU[string, pendingFlow]
}

// NewFlow creates a Flow
func NewFlow(cfg Config, logger *slog.Logger) (*Flow, error) {
	if cfg.RedirectBaseURL == "" {
		return nil, fmt.Errorf("redirect base URL is required")
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: exchangeTimeout}
	}
	if cfg.Profiles == nil {
		cfg.Profiles = NewProfileResolver(cfg.Clients, cfg.HTTPClient, logger)
	}

	return &Flow{
		clients:      cfg.Clients,
		redirectBase: strings.TrimSuffix(cfg.RedirectBaseURL, "/"),
		httpClient:   cfg.HTTPClient,
		profiles:     cfg.Profiles,
		logger:       logger,
		pending:      expirable.NewLRU[string, pendingFlow](cfg.MaxPending, nil, cfg.StateTTL),
	}, nil
}

// RedirectURL returns the loopback redirect URL registered for p
func (f *Flow) RedirectURL(p models.Platform) string {
	return f.redirectBase + CallbackPath + string(p)
}

// Configured reports whether an OAuth client exists for p
func (f *Flow) Configured(p models.Platform) bool {
	_, ok := f.clients[p]
	return ok
}

func (f *Flow) oauthConfig(p models.Platform) (*oauth2.Config, models.PlatformConfig, error) {
	platformCfg, err := models.LookupPlatformConfig(p)
	if err != nil {
		return nil, models.PlatformConfig{}, err
	}
	client, ok := f.clients[p]
	if !ok {
		return nil, platformCfg, fmt.Errorf("%w for %s", ErrClientNotConfigured, p)
	}

	endpoint, ok := libraryEndpoints[p]
	if !ok {
		endpoint = oauth2.Endpoint{AuthURL: platformCfg.AuthURL, TokenURL: platformCfg.TokenURL}
	}
	if p == models.TikTok {
		// TikTok reads client_key from the form body
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	if client.AuthURL != "" {
		endpoint.AuthURL = client.AuthURL
	}
	if client.TokenURL != "" {
		endpoint.TokenURL = client.TokenURL
	}

	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  f.RedirectURL(p),
		// Scopes are passed as one pre-joined value since providers disagree on the separator
	}, platformCfg, nil
}

// AuthorizationURL starts a flow for p and returns the provider URL to open.
// The flow must be completed within the state TTL.
func (f *Flow) AuthorizationURL(p models.Platform) (string, error) {
	conf, platformCfg, err := f.oauthConfig(p)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("scope", platformCfg.JoinScopes(platformCfg.Scopes)),
	}

	flow := pendingFlow{platform: p, startedAt: time.Now()}
	if platformCfg.UsePKCE {
		flow.verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(flow.verifier))
	}
	switch p {
	case models.TikTok:
		opts = append(opts, oauth2.SetAuthURLParam("client_key", conf.ClientID))
	case models.YouTube:
		opts = append(opts, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	}

	f.mu.Lock()
	f.pending.Add(state, flow)
	f.mu.Unlock()

	f.logger.Debug("OAuth flow pending", "platform", p, "pkce", platformCfg.UsePKCE)
	return conf.AuthCodeURL(state, opts...), nil
}

// Pending returns the number of flows waiting for a callback
func (f *Flow) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending.Len()
}

// takeState consumes state; a state can complete at most one flow
func (f *Flow) takeState(state string, p models.Platform) (pendingFlow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	flow, ok := f.pending.Get(state)
	if !ok {
		return pendingFlow{}, ErrInvalidState
	}
	if flow.platform != p {
		return pendingFlow{}, fmt.Errorf("%w: issued for %s, callback for %s", ErrInvalidState, flow.platform, p)
	}
	f.pending.Remove(state)
	return flow, nil
}

// Exchange validates cb and trades its code for a credential. Nothing is stored.
func (f *Flow) Exchange(ctx context.Context, cb Callback) (*models.PlatformCredential, error) {
	if cb.Error != "" {
		// The pending state is dropped so a denied flow cannot be replayed
		_, _ = f.takeState(cb.State, cb.Platform)
		return nil, fmt.Errorf("%w: %s", ErrAuthorizationDenied, cb.describeError())
	}
	if cb.State == "" {
		return nil, fmt.Errorf("%w: missing state", ErrInvalidState)
	}
	if cb.Code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrInvalidCallback)
	}

	flow, err := f.takeState(cb.State, cb.Platform)
	if err != nil {
		return nil, err
	}

	conf, platformCfg, err := f.oauthConfig(cb.Platform)
	if err != nil {
		return nil, err
	}

	var opts []oauth2.AuthCodeOption
	if flow.verifier != "" {
		opts = append(opts, oauth2.VerifierOption(flow.verifier))
	}
	if cb.Platform == models.TikTok {
		opts = append(opts, oauth2.SetAuthURLParam("client_key", conf.ClientID))
	}

	start := time.Now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	token, err := conf.Exchange(ctx, cb.Code, opts...)
	if err != nil {
		f.logger.Error("Token exchange failed",
			"platform", cb.Platform,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}

	cred := credentialFromToken(cb.Platform, token, platformCfg.Scopes)

	profile, err := f.profiles.Resolve(ctx, cb.Platform, token)
	if err != nil {
		// A credential without a resolved account is still usable
		f.logger.Warn("Failed to resolve platform profile",
			"platform", cb.Platform,
			"error", err)
	} else {
		if profile.ID != "" {
			cred.PlatformUserID = profile.ID
		}
		if profile.Username != "" {
			cred.PlatformUsername = profile.Username
		}
	}

	f.logger.Info("Token exchange completed",
		"platform", cb.Platform,
		"platform_username", cred.PlatformUsername,
		"flow_age_ms", time.Since(flow.startedAt).Milliseconds(),
		"duration_ms", time.Since(start).Milliseconds())
	return cred, nil
}

// Complete exchanges cb and hands the credential to store
func (f *Flow) Complete(ctx context.Context, cb Callback, store CredentialStore) (*models.PlatformCredential, error) {
	cred, err := f.Exchange(ctx, cb)
	if err != nil {
		return nil, err
	}
	if err := store.StoreCredentials(ctx, cb.Platform, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// credentialFromToken maps a provider token to the stored record.
// Granted scopes come from the token response when the provider reports them.
func credentialFromToken(p models.Platform, token *oauth2.Token, requested []string) *models.PlatformCredential {
	scopes := requested
	if granted, ok := token.Extra("scope").(string); ok && granted != "" {
		scopes = models.SplitScopes(granted)
	}

	cred := &models.PlatformCredential{
		Platform:     p,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    models.ExpiresAtMillis(token.Expiry),
		Scopes:       append([]string(nil), scopes...),
	}

	// Some providers identify the account in the token response itself
	for _, key := range []string{"open_id", "user_id"} {
		switch v := token.Extra(key).(type) {
		case string:
			if v != "" {
				cred.PlatformUserID = v
			}
		case float64:
			// Large numeric ids lose precision here; the profile lookup replaces them
			cred.PlatformUserID = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return cred
}
