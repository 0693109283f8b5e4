package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// PlatformCredential is the OAuth credential stored for one platform.
// The JSON form is the on-disk format and must stay compatible with existing records.
type PlatformCredential struct {
	Platform         Platform `json:"platform" validate:"omitempty,platform"`
	AccessToken      string   `json:"accessToken" validate:"required"`
	RefreshToken     string   `json:"refreshToken,omitempty"`
	ExpiresAt        *int64   `json:"expiresAt,omitempty"` // epoch milliseconds
	PlatformUserID   string   `json:"platformUserId"`
	PlatformUsername string   `json:"platformUsername"`
	Scopes           []string `json:"scopes"`
}

// ExpiresAtMillis converts t to the epoch-millisecond form used by ExpiresAt.
// A zero time means "no expiry" and yields nil.
func ExpiresAtMillis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// Expiry returns the expiry as a time and whether one is set
func (c *PlatformCredential) Expiry() (time.Time, bool) {
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*c.ExpiresAt), true
}

// IsExpired reports whether the credential has an expiry at or before now.
// A credential without expiry never expires.
func (c *PlatformCredential) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return *c.ExpiresAt <= now.UnixMilli()
}

// Clone returns a deep copy
func (c *PlatformCredential) Clone() *PlatformCredential {
	out := *c
	if c.ExpiresAt != nil {
		v := *c.ExpiresAt
		out.ExpiresAt = &v
	}
	if c.Scopes != nil {
		out.Scopes = append([]string(nil), c.Scopes...)
	}
	return &out
}

// MarshalCredential encodes a credential into its stored form
func MarshalCredential(c *PlatformCredential) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalCredential decodes a stored credential. It does not validate the result.
// A fractional expiresAt, as written by JavaScript clients, is truncated to
// whole milliseconds.
func UnmarshalCredential(raw string) (*PlatformCredential, error) {
	type record PlatformCredential
	var c PlatformCredential
	aux := struct {
		*record
		ExpiresAt *json.Number `json:"expiresAt,omitempty"`
	}{record: (*record)(&c)}
	if err := json.Unmarshal([]byte(raw), &aux); err != nil {
		return nil, err
	}
	if aux.ExpiresAt != nil {
		ms, err := epochMillis(*aux.ExpiresAt)
		if err != nil {
			return nil, err
		}
		c.ExpiresAt = &ms
	}
	return &c, nil
}

func epochMillis(n json.Number) (int64, error) {
	if ms, err := n.Int64(); err == nil {
		return ms, nil
	}
	f, err := n.Float64()
	if err != nil || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("expiresAt %q is not an epoch-millisecond timestamp", n.String())
	}
	return int64(math.Trunc(f)), nil
}

// ConnectionStatus is the token-free view of a platform's connection
type ConnectionStatus struct {
	Platform         Platform `json:"platform"`
	Name             string   `json:"name"`
	Color            string   `json:"color"`
	Connected        bool     `json:"connected"`
	Expired          bool     `json:"expired"`
	PlatformUserID   string   `json:"platformUserId,omitempty"`
	PlatformUsername string   `json:"platformUsername,omitempty"`
	Scopes           []string `json:"scopes,omitempty"`
	ExpiresAt        *int64   `json:"expiresAt,omitempty"`
	HasRefreshToken  bool     `json:"hasRefreshToken"`
}
