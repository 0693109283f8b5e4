package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/criteo/social-connect/internal/apierrors"
	"github.com/criteo/social-connect/internal/models"
	"github.com/criteo/social-connect/internal/oauth"
)

// CallbackCompleter finishes an authorization flow and stores the result
type CallbackCompleter interface {
	Complete(ctx context.Context, cb oauth.Callback, store oauth.CredentialStore) (*models.PlatformCredential, error)
}

// CallbackHandler completes OAuth callbacks from the loopback redirect and
// from forwarded deep links
type CallbackHandler struct {
	flow    CallbackCompleter
	store   oauth.CredentialStore
	metrics *MetricsHandler
	logger  *slog.Logger
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(flow CallbackCompleter, store oauth.CredentialStore, metrics *MetricsHandler, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{
		flow:    flow,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// CallbackRequest is the body of POST /api/v1/callback
type CallbackRequest struct {
	URL string `json:"url"`
}

// CallbackResponse reports a completed connection without exposing tokens
type CallbackResponse struct {
	Platform         models.Platform `json:"platform"`
	Connected        bool            `json:"connected"`
	PlatformUserID   string          `json:"platformUserId,omitempty"`
	PlatformUsername string          `json:"platformUsername,omitempty"`
	Scopes           []string        `json:"scopes,omitempty"`
	ExpiresAt        *int64          `json:"expiresAt,omitempty"`
}

func (h *CallbackHandler) complete(ctx context.Context, cb oauth.Callback) (*models.PlatformCredential, error) {
	cred, err := h.flow.Complete(ctx, cb, h.store)
	if h.metrics != nil {
		h.metrics.RecordCallback(cb.Platform, err == nil)
	}
	if err != nil {
		h.logger.Warn("OAuth callback rejected",
			"platform", cb.Platform,
			"error", err)
		return nil, err
	}
	return cred, nil
}

// PostCallback handles POST /api/v1/callback with a forwarded deep link
func (h *CallbackHandler) PostCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialBody)).Decode(&req); err != nil || req.URL == "" {
		if h.metrics != nil {
			h.metrics.IncrementValidationErrors()
		}
		apierrors.WriteError(w, apierrors.ErrCodeValidationError, `Request body must be {"url": "<callback URL>"}`, http.StatusBadRequest, nil)
		return
	}

	cb, err := oauth.ParseCallbackURL(req.URL)
	if err != nil {
		apierrors.WriteMappedError(w, err, nil)
		return
	}

	cred, err := h.complete(r.Context(), cb)
	if err != nil {
		apierrors.WriteMappedError(w, err, map[string]string{"platform": string(cb.Platform)})
		return
	}

	writeJSON(w, http.StatusOK, CallbackResponse{
		Platform:         cb.Platform,
		Connected:        true,
		PlatformUserID:   cred.PlatformUserID,
		PlatformUsername: cred.PlatformUsername,
		Scopes:           cred.Scopes,
		ExpiresAt:        cred.ExpiresAt,
	}, h.logger)
}

// resultPage is shown in the browser tab the provider redirected to
var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .OK}}Connected{{else}}Connection failed{{end}}</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; justify-content: center; margin-top: 15vh; color: #222; }
.card { max-width: 28rem; padding: 2rem; border-radius: 12px; box-shadow: 0 2px 12px rgba(0,0,0,.12); border-top: 6px solid {{.Color}}; }
</style>
</head>
<body>
<div class="card">
{{if .OK}}
<h1>{{.Name}} connected</h1>
<p>{{if .Username}}Signed in as <strong>{{.Username}}</strong>. {{end}}You can close this tab.</p>
{{else}}
<h1>Couldn't connect {{.Name}}</h1>
<p>{{.Message}}</p>
{{end}}
</div>
</body>
</html>
`))

type resultPageData struct {
	OK       bool
	Name     string
	Color    string
	Username string
	Message  string
}

// GetOAuthCallback handles GET /oauth/callback/{platform}, the loopback redirect target
func (h *CallbackHandler) GetOAuthCallback(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "platform")
	p, err := models.ParsePlatform(raw)
	if err != nil {
		h.renderResult(w, http.StatusNotFound, resultPageData{Name: raw, Color: "#999999", Message: "This platform is not supported."})
		return
	}
	cfg, _ := models.LookupPlatformConfig(p)
	data := resultPageData{Name: cfg.Name, Color: cfg.Color}

	cred, err := h.complete(r.Context(), oauth.CallbackFromQuery(p, r.URL.Query()))
	if err != nil {
		_, msg, status := apierrors.MapError(err)
		data.Message = msg
		h.renderResult(w, status, data)
		return
	}

	data.OK = true
	data.Username = cred.PlatformUsername
	h.renderResult(w, http.StatusOK, data)
}

func (h *CallbackHandler) renderResult(w http.ResponseWriter, status int, data resultPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := resultPage.Execute(w, data); err != nil {
		h.logger.Error("Failed to render callback page", "error", err)
	}
}
