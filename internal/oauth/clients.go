package oauth

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/criteo/social-connect/internal/models"
)

// Client holds the application credentials registered with one provider.
// The endpoint fields override the built-in provider endpoints.
type Client struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AuthURL      string `yaml:"auth_url,omitempty"`
	TokenURL     string `yaml:"token_url,omitempty"`
	ProfileURL   string `yaml:"profile_url,omitempty"`
}

// Clients maps platforms to their OAuth client
type Clients map[models.Platform]Client

type clientsFile struct {
	Clients map[string]Client `yaml:"clients"`
}

// LoadClients reads the clients file at path. An empty path yields no
// clients. Client ids and secrets may also come from the environment as
// SOCIAL_CONNECT_<PLATFORM>_CLIENT_ID and SOCIAL_CONNECT_<PLATFORM>_CLIENT_SECRET,
// which take precedence over the file.
func LoadClients(path string) (Clients, error) {
	clients := make(Clients)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read OAuth clients file: %w", err)
		}

		var file clientsFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse OAuth clients file: %w", err)
		}

		for name, c := range file.Clients {
			p, err := models.ParsePlatform(name)
			if err != nil {
				return nil, fmt.Errorf("OAuth clients file: %w", err)
			}
			clients[p] = c
		}
	}

	for _, p := range models.AllPlatforms() {
		prefix := "SOCIAL_CONNECT_" + strings.ToUpper(string(p))
		c := clients[p]
		if v := os.Getenv(prefix + "_CLIENT_ID"); v != "" {
			c.ClientID = v
		}
		if v := os.Getenv(prefix + "_CLIENT_SECRET"); v != "" {
			c.ClientSecret = v
		}
		if c != (Client{}) {
			clients[p] = c
		}
	}

	for p, c := range clients {
		if c.ClientID == "" {
			return nil, fmt.Errorf("OAuth client for %s has no client_id", p)
		}
	}

	return clients, nil
}

// Configured returns the platforms that have a client, in enumeration order
func (c Clients) Configured() []models.Platform {
	var out []models.Platform
	for _, p := range models.AllPlatforms() {
		if _, ok := c[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
