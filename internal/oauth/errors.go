package oauth

import "errors"

var (
	// ErrInvalidState is returned for callbacks whose state is unknown, expired,
	// already used, or issued for another platform
	ErrInvalidState = errors.New("invalid or expired OAuth state")

	// ErrInvalidCallback is returned when a URL is not an OAuth callback
	ErrInvalidCallback = errors.New("invalid OAuth callback")

	// ErrAuthorizationDenied is returned when the provider reports an error
	// instead of an authorization code
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrTokenExchange is returned when the code cannot be exchanged for a token
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrClientNotConfigured is returned when no OAuth client is configured for a platform
	ErrClientNotConfigured = errors.New("OAuth client not configured")
)
