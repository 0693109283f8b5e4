package auth

import (
	"errors"
	"fmt"
	"os"
)

// TokenEnvVar is the environment variable for the daemon session token
const TokenEnvVar = "SOCIAL_CONNECT_SESSION_TOKEN"

// ResolveToken resolves the "user:password" token using precedence:
// 1. flagToken (--token flag)
// 2. SOCIAL_CONNECT_SESSION_TOKEN
// 3. Stored session
// An empty result means no token is configured.
func ResolveToken(flagToken string) (string, error) {
	if flagToken != "" {
		return flagToken, nil
	}

	if envToken := os.Getenv(TokenEnvVar); envToken != "" {
		return envToken, nil
	}

	storedToken, err := LoadStoredToken()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load stored token: %w", err)
	}

	return storedToken, nil
}
