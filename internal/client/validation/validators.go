package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/criteo/social-connect/internal/models"
)

// ValidatePlatform parses a platform argument
func ValidatePlatform(arg string) (models.Platform, error) {
	p, err := models.ParsePlatform(arg)
	if err != nil {
		names := make([]string, 0, len(models.AllPlatforms()))
		for _, candidate := range models.AllPlatforms() {
			names = append(names, string(candidate))
		}
		return "", fmt.Errorf("unsupported platform '%s'. Expected one of: %s", arg, strings.Join(names, ", "))
	}
	return p, nil
}

// ParseExpiresIn converts --expires-in into an epoch-millisecond expiry.
// It accepts a Go duration ("2h", "90m") or a number of seconds ("3600").
// An empty value means the token never expires.
func ParseExpiresIn(value string, now time.Time) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	var d time.Duration
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		d = time.Duration(secs) * time.Second
	} else if parsed, err := time.ParseDuration(value); err == nil {
		d = parsed
	} else {
		return nil, fmt.Errorf("invalid --expires-in format. Expected seconds or a duration like '2h', got: '%s'", value)
	}

	if d <= 0 {
		return nil, fmt.Errorf("invalid --expires-in. Must be positive, got: '%s'", value)
	}
	return models.ExpiresAtMillis(now.Add(d)), nil
}

// ParseScopes flattens repeated or comma/space separated --scopes values
func ParseScopes(values []string) []string {
	var scopes []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, scope := range models.SplitScopes(v) {
			if !seen[scope] {
				seen[scope] = true
				scopes = append(scopes, scope)
			}
		}
	}
	return scopes
}
