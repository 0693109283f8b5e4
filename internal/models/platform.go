package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPlatform is returned when a platform tag is outside the supported set
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Platform identifies one of the social platforms the manager integrates with
type Platform string

// Supported platforms. The declaration order is the enumeration order used
// wherever platforms are listed.
const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
)

// storageKeyPrefix must not change: existing stored credentials are keyed by it
const storageKeyPrefix = "oauth_"

// AllPlatforms returns the supported platforms in enumeration order
func AllPlatforms() []Platform {
	return []Platform{Instagram, Facebook, Twitter, LinkedIn, YouTube, TikTok}
}

// ParsePlatform converts user input into a Platform, rejecting unknown tags
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
	}
	return p, nil
}

// Valid reports whether p is one of the supported platforms
func (p Platform) Valid() bool {
	_, ok := platformConfigs[p]
	return ok
}

// StorageKey returns the key-value store key for the platform's credential
func (p Platform) StorageKey() string {
	return storageKeyPrefix + string(p)
}

func (p Platform) String() string {
	return string(p)
}

// PlatformConfig is the static, read-only description of a platform
type PlatformConfig struct {
	Platform Platform `json:"platform"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Scopes   []string `json:"scopes"`

	// OAuth provider details used to build authorization URLs and exchange codes
	AuthURL        string `json:"-"`
	TokenURL       string `json:"-"`
	ProfileURL     string `json:"-"`
	ScopeSeparator string `json:"-"`
	UsePKCE        bool   `json:"-"`
}

// platformConfigs must have exactly one entry per constant above
var platformConfigs = map[Platform]PlatformConfig{
	Instagram: {
		Platform:       Instagram,
		Name:           "Instagram",
		Color:          "#E4405F",
		Scopes:         []string{"instagram_business_basic", "instagram_business_content_publish", "instagram_business_manage_insights"},
		AuthURL:        "https://www.instagram.com/oauth/authorize",
		TokenURL:       "https://api.instagram.com/oauth/access_token",
		ProfileURL:     "https://graph.instagram.com/me?fields=user_id,username",
		ScopeSeparator: ",",
	},
	Facebook: {
		Platform:       Facebook,
		Name:           "Facebook",
		Color:          "#1877F2",
		Scopes:         []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts"},
		AuthURL:        "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:       "https://graph.facebook.com/v19.0/oauth/access_token",
		ProfileURL:     "https://graph.facebook.com/me?fields=id,name",
		ScopeSeparator: ",",
	},
	Twitter: {
		Platform:       Twitter,
		Name:           "X (Twitter)",
		Color:          "#000000",
		Scopes:         []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		AuthURL:        "https://twitter.com/i/oauth2/authorize",
		TokenURL:       "https://api.twitter.com/2/oauth2/token",
		ProfileURL:     "https://api.twitter.com/2/users/me",
		ScopeSeparator: " ",
		UsePKCE:        true,
	},
	LinkedIn: {
		Platform:       LinkedIn,
		Name:           "LinkedIn",
		Color:          "#0A66C2",
		Scopes:         []string{"openid", "profile", "w_member_social"},
		AuthURL:        "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:       "https://www.linkedin.com/oauth/v2/accessToken",
		ProfileURL:     "https://api.linkedin.com/v2/userinfo",
		ScopeSeparator: " ",
	},
	YouTube: {
		Platform:       YouTube,
		Name:           "YouTube",
		Color:          "#FF0000",
		Scopes:         []string{"https://www.googleapis.com/auth/youtube.upload", "https://www.googleapis.com/auth/youtube.readonly"},
		AuthURL:        "https://accounts.google.com/o/oauth2/auth",
		TokenURL:       "https://oauth2.googleapis.com/token",
		ScopeSeparator: " ",
		UsePKCE:        true,
	},
	TikTok: {
		Platform:       TikTok,
		Name:           "TikTok",
		Color:          "#010101",
		Scopes:         []string{"user.info.basic", "video.upload", "video.publish"},
		AuthURL:        "https://www.tiktok.com/v2/auth/authorize/",
		TokenURL:       "https://open.tiktokapis.com/v2/oauth/token/",
		ProfileURL:     "https://open.tiktokapis.com/v2/user/info/?fields=open_id,display_name",
		ScopeSeparator: ",",
		UsePKCE:        true,
	},
}

// LookupPlatformConfig returns the static configuration for p.
// The returned value shares no memory with the table.
func LookupPlatformConfig(p Platform) (PlatformConfig, error) {
	cfg, ok := platformConfigs[p]
	if !ok {
		return PlatformConfig{}, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, string(p))
	}
	cfg.Scopes = append([]string(nil), cfg.Scopes...)
	return cfg, nil
}

// JoinScopes joins scopes with the separator the provider expects
func (c PlatformConfig) JoinScopes(scopes []string) string {
	sep := c.ScopeSeparator
	if sep == "" {
		sep = " "
	}
	return strings.Join(scopes, sep)
}

// SplitScopes parses a provider scope string, accepting either comma or space separators
func SplitScopes(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
