package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/criteo/social-connect/internal/models"
)

// Profile identifies the remote account a token belongs to
type Profile struct {
	ID       string
	Username string
}

// ProfileResolver looks up the account behind a fresh token
type ProfileResolver interface {
	Resolve(ctx context.Context, p models.Platform, token *oauth2.Token) (Profile, error)
}

// profileFields locates the id and display name in each provider's
// profile response, as dotted JSON paths
var profileFields = map[models.Platform]struct{ id, name string }{
	models.Instagram: {"user_id", "username"},
	models.Facebook:  {"id", "name"},
	models.Twitter:   {"data.id", "data.username"},
	models.LinkedIn:  {"sub", "name"},
	models.TikTok:    {"data.user.open_id", "data.user.display_name"},
}

// HTTPProfileResolver fetches JSON profile endpoints, and the YouTube Data
// API for YouTube
type HTTPProfileResolver struct {
	clients    Clients
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProfileResolver creates the default resolver. Profile URL overrides in
// clients take precedence over the built-in endpoints.
func NewProfileResolver(clients Clients, httpClient *http.Client, logger *slog.Logger) *HTTPProfileResolver {
	return &HTTPProfileResolver{
		clients:    clients,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Resolve returns the account behind token
func (r *HTTPProfileResolver) Resolve(ctx context.Context, p models.Platform, token *oauth2.Token) (Profile, error) {
	if p == models.YouTube {
		return r.resolveYouTube(ctx, token)
	}

	fields, ok := profileFields[p]
	if !ok {
		return Profile{}, fmt.Errorf("no profile lookup for %s", p)
	}
	profileURL := r.clients[p].ProfileURL
	if profileURL == "" {
		cfg, err := models.LookupPlatformConfig(p)
		if err != nil {
			return Profile{}, err
		}
		profileURL = cfg.ProfileURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to build profile request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("profile request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile response: %w", err)
	}

	profile := Profile{
		ID:       lookupString(doc, fields.id),
		Username: lookupString(doc, fields.name),
	}
	if profile.ID == "" {
		return Profile{}, fmt.Errorf("profile response has no %s", fields.id)
	}
	r.logger.Debug("Platform profile resolved", "platform", p, "platform_user_id", profile.ID)
	return profile, nil
}

func (r *HTTPProfileResolver) resolveYouTube(ctx context.Context, token *oauth2.Token) (Profile, error) {
	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, r.httpClient), oauth2.StaticTokenSource(token))

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint := r.clients[models.YouTube].ProfileURL; endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	resp, err := service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return Profile{}, fmt.Errorf("YouTube channel lookup failed: %w", err)
	}
	if len(resp.Items) == 0 {
		return Profile{}, fmt.Errorf("YouTube account has no channel")
	}

	channel := resp.Items[0]
	profile := Profile{ID: channel.Id}
	if channel.Snippet != nil {
		profile.Username = channel.Snippet.Title
		if channel.Snippet.CustomUrl != "" {
			profile.Username = channel.Snippet.CustomUrl
		}
	}
	return profile, nil
}

// lookupString follows a dotted path through decoded JSON objects.
func lookupString(doc map[string]any, path string) string {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[key]
	}
	switch v := cur.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
