package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/criteo/social-connect/internal/models"
)

// Client wraps the HTTP client for daemon API calls
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Verbose    bool
	Debug      io.Writer
}

// NewClient creates a new API client. token is the raw "user:password" pair.
func NewClient(baseURL, token string, timeout time.Duration, verbose bool) *Client {
	encoded := ""
	if token != "" {
		encoded = base64.StdEncoding.EncodeToString([]byte(token))
	}
	return &Client{
		BaseURL: baseURL,
		Token:   encoded,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Verbose: verbose,
	}
}

// APIError is a non-2xx daemon response decoded from the error envelope
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

// Platform is one entry of the daemon's platform listing
type Platform struct {
	models.ConnectionStatus
	RequestedScopes []string `json:"requestedScopes"`
	OAuthConfigured bool     `json:"oauthConfigured"`
}

// ConnectResult reports whether the daemon opened the authorization URL
type ConnectResult struct {
	Platform         models.Platform `json:"platform"`
	Launched         bool            `json:"launched"`
	AuthorizationURL string          `json:"authorizationUrl,omitempty"`
	Reason           string          `json:"reason,omitempty"`
}

// CallbackResult is the outcome of a forwarded deep link
type CallbackResult struct {
	Platform         models.Platform `json:"platform"`
	Connected        bool            `json:"connected"`
	PlatformUserID   string          `json:"platformUserId,omitempty"`
	PlatformUsername string          `json:"platformUsername,omitempty"`
	Scopes           []string        `json:"scopes,omitempty"`
	ExpiresAt        *int64          `json:"expiresAt,omitempty"`
}

// doRequest executes an HTTP request with authentication
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	target := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.Token != "" {
		req.Header.Set("Authorization", "Basic "+c.Token)
	}

	if c.Verbose && c.Debug != nil {
		fmt.Fprintf(c.Debug, "[DEBUG] %s %s\n", method, target)
	}

	return c.HTTPClient.Do(req)
}

// Get executes a GET request
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil)
}

// Post executes a POST request
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodPost, path, body)
}

// Put executes a PUT request
func (c *Client) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodPut, path, body)
}

// Delete executes a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodDelete, path, nil)
}

// call runs a request and decodes a JSON reply into out, unless out is nil
func (c *Client) call(ctx context.Context, method, path string, body, out any, want int) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env errorEnvelope
	if json.Unmarshal(data, &env) == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}

func platformPath(p models.Platform) string {
	return "/api/v1/platforms/" + url.PathEscape(string(p))
}

// Whoami returns the authenticated username
func (c *Client) Whoami(ctx context.Context) (string, error) {
	var resp struct {
		Username string `json:"username"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/whoami", nil, &resp, http.StatusOK); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// ListPlatforms returns every supported platform with its connection status
func (c *Client) ListPlatforms(ctx context.Context) ([]Platform, error) {
	var resp struct {
		Platforms []Platform `json:"platforms"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/platforms", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return resp.Platforms, nil
}

// Connected returns the platforms with a stored credential
func (c *Client) Connected(ctx context.Context) ([]models.Platform, error) {
	var resp struct {
		Platforms []models.Platform `json:"platforms"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/platforms/connected", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return resp.Platforms, nil
}

// GetPlatform returns one platform's status
func (c *Client) GetPlatform(ctx context.Context, p models.Platform) (*Platform, error) {
	var resp Platform
	if err := c.call(ctx, http.MethodGet, platformPath(p), nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Connect asks the daemon to open the platform's authorization page
func (c *Client) Connect(ctx context.Context, p models.Platform) (*ConnectResult, error) {
	var resp ConnectResult
	if err := c.call(ctx, http.MethodPost, platformPath(p)+"/connect", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportCredentials stores a credential obtained outside the daemon
func (c *Client) ImportCredentials(ctx context.Context, p models.Platform, cred *models.PlatformCredential) (*Platform, error) {
	var resp Platform
	if err := c.call(ctx, http.MethodPut, platformPath(p)+"/credentials", cred, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Disconnect removes the platform's credential
func (c *Client) Disconnect(ctx context.Context, p models.Platform) error {
	return c.call(ctx, http.MethodDelete, platformPath(p), nil, nil, http.StatusNoContent)
}

// Callback forwards a provider redirect URL to the daemon
func (c *Client) Callback(ctx context.Context, callbackURL string) (*CallbackResult, error) {
	var resp CallbackResult
	body := map[string]string{"url": callbackURL}
	if err := c.call(ctx, http.MethodPost, "/api/v1/callback", body, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}
