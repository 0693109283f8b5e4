package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/criteo/social-connect/internal/client/auth"
)

const (
	// URLEnvVar is the environment variable for the daemon URL
	URLEnvVar = "SOCIAL_CONNECT_URL"

	// DefaultURL is the daemon's default loopback address
	DefaultURL = "http://127.0.0.1:8787"
)

// ResolveURL resolves the daemon URL using precedence:
// 1. flagURL (--url flag)
// 2. SOCIAL_CONNECT_URL
// 3. URL stored by 'login'
// 4. DefaultURL
func ResolveURL(flagURL string) (string, error) {
	if flagURL != "" {
		return ValidateURL(flagURL)
	}

	if envURL := os.Getenv(URLEnvVar); envURL != "" {
		return ValidateURL(envURL)
	}

	if storedURL, err := auth.LoadStoredURL(); err == nil {
		return ValidateURL(storedURL)
	}

	return DefaultURL, nil
}

// ValidateURL checks that raw is an absolute http(s) URL and normalizes it
func ValidateURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", raw)
	}
	return NormalizeURL(u.String()), nil
}

// NormalizeURL removes trailing slashes from URLs
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}
