package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/criteo/social-connect/internal/storage"
)

// EnvPrefix prefixes every environment variable the daemon reads
const EnvPrefix = "SOCIAL_CONNECT"

// Config holds all configuration for the daemon
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`

	// TrustProxy keys the rate limiter on X-Forwarded-For / X-Real-IP
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// StorageConfig holds storage configuration (URI-based)
type StorageConfig struct {
	URI   string `mapstructure:"uri"`   // Storage URI (e.g., keyring://social-connect)
	Token string `mapstructure:"token"` // Opaque token for storage authentication
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Type      string `mapstructure:"type"`       // none | basic
	UsersFile string `mapstructure:"users_file"` // for basic auth
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // json | text
}

// OAuthConfig holds authorization flow configuration
type OAuthConfig struct {
	RedirectBaseURL string        `mapstructure:"redirect_base_url"`
	ClientsFile     string        `mapstructure:"clients_file"`
	StateTTL        time.Duration `mapstructure:"state_ttl"`
	Launcher        string        `mapstructure:"launcher"` // system | print
}

// CORSConfig holds the dashboard origin allowed to call the API
type CORSConfig struct {
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// NewViper creates a new viper instance with defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8787)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("storage.uri", "keyring://social-connect")
	v.SetDefault("storage.token", "")
	v.SetDefault("auth.type", "none")
	v.SetDefault("auth.users_file", "./users.yaml")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("oauth.redirect_base_url", "http://127.0.0.1:8787")
	v.SetDefault("oauth.clients_file", "")
	v.SetDefault("oauth.state_ttl", 10*time.Minute)
	v.SetDefault("oauth.launcher", "system")
	v.SetDefault("cors.allowed_origin", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads an optional .env file, then the optional config file, then
// environment variables, on top of the defaults
func Load(configFile string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := NewViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a pre-configured viper instance
// This allows CLI flags to be bound before loading
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding the environment.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if _, err := storage.ParseStorageURI(c.Storage.URI); err != nil {
		return fmt.Errorf("invalid storage URI: %w", err)
	}

	if c.Auth.Type != "none" && c.Auth.Type != "basic" {
		return fmt.Errorf("auth.type must be 'none' or 'basic'")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be json or text")
	}

	redirect, err := url.Parse(c.OAuth.RedirectBaseURL)
	if err != nil || (redirect.Scheme != "http" && redirect.Scheme != "https") || redirect.Host == "" {
		return fmt.Errorf("oauth.redirect_base_url must be an http(s) URL, got %q", c.OAuth.RedirectBaseURL)
	}

	if c.OAuth.StateTTL <= 0 {
		return fmt.Errorf("oauth.state_ttl must be positive")
	}

	if c.OAuth.Launcher != "system" && c.OAuth.Launcher != "print" {
		return fmt.Errorf("oauth.launcher must be 'system' or 'print'")
	}

	return nil
}

// GetParsedStorageURI returns the parsed storage URI
func (c *Config) GetParsedStorageURI() (*storage.StorageURI, error) {
	return storage.ParseStorageURI(c.Storage.URI)
}

// Address returns the host:port the daemon listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaskToken returns a masked version of the storage token for logging
func (c *Config) MaskToken() string {
	if c.Storage.Token == "" {
		return ""
	}
	return "***"
}
