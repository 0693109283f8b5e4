package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/criteo/social-connect/internal/apierrors"
	"github.com/criteo/social-connect/internal/credentials"
	"github.com/criteo/social-connect/internal/models"
)

// maxCredentialBody caps PUT bodies; a credential is a few KB at most
const maxCredentialBody = 64 << 10

// ClientChecker reports whether an OAuth client is configured for a platform
type ClientChecker interface {
	Configured(p models.Platform) bool
}

// PlatformHandler serves platform listing, connection and credential import
type PlatformHandler struct {
	manager *credentials.Manager
	clients ClientChecker
	metrics *MetricsHandler
	logger  *slog.Logger
}

// NewPlatformHandler creates a new platform handler. clients may be nil when
// no OAuth clients are configured.
func NewPlatformHandler(manager *credentials.Manager, clients ClientChecker, metrics *MetricsHandler, logger *slog.Logger) *PlatformHandler {
	return &PlatformHandler{
		manager: manager,
		clients: clients,
		metrics: metrics,
		logger:  logger,
	}
}

// PlatformResponse is one platform's configuration and token-free status
type PlatformResponse struct {
	models.ConnectionStatus
	RequestedScopes []string `json:"requestedScopes"`
	OAuthConfigured bool     `json:"oauthConfigured"`
}

// PlatformListResponse wraps a platform list
type PlatformListResponse struct {
	Platforms []PlatformResponse `json:"platforms"`
}

// ConnectedResponse lists connected platforms in enumeration order
type ConnectedResponse struct {
	Platforms []models.Platform `json:"platforms"`
}

// ConnectResponse reports whether the authorization URL was opened.
// AuthorizationURL is set whenever one was built, so a UI can offer it.
type ConnectResponse struct {
	Platform         models.Platform `json:"platform"`
	Launched         bool            `json:"launched"`
	AuthorizationURL string          `json:"authorizationUrl,omitempty"`
	Reason           string          `json:"reason,omitempty"`
}

// platformParam resolves the {platform} URL parameter, writing a 404 when unknown
func (h *PlatformHandler) platformParam(w http.ResponseWriter, r *http.Request) (models.Platform, bool) {
	p, err := models.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		apierrors.WriteMappedError(w, err, map[string]string{"platform": chi.URLParam(r, "platform")})
		return "", false
	}
	return p, true
}

func (h *PlatformHandler) describe(r *http.Request, p models.Platform) (PlatformResponse, error) {
	status, err := h.manager.Status(r.Context(), p)
	if err != nil {
		return PlatformResponse{}, err
	}
	cfg, err := h.manager.GetPlatformConfig(p)
	if err != nil {
		return PlatformResponse{}, err
	}
	return PlatformResponse{
		ConnectionStatus: status,
		RequestedScopes:  cfg.Scopes,
		OAuthConfigured:  h.clients != nil && h.clients.Configured(p),
	}, nil
}

// ListPlatforms handles GET /api/v1/platforms
func (h *PlatformHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	all := models.AllPlatforms()
	response := PlatformListResponse{Platforms: make([]PlatformResponse, 0, len(all))}
	for _, p := range all {
		item, err := h.describe(r, p)
		if err != nil {
			h.logger.Error("Failed to describe platform", "platform", p, "error", err)
			apierrors.WriteMappedError(w, err, nil)
			return
		}
		response.Platforms = append(response.Platforms, item)
	}

	writeJSON(w, http.StatusOK, response, h.logger)
}

// ListConnected handles GET /api/v1/platforms/connected
func (h *PlatformHandler) ListConnected(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConnectedResponse{Platforms: h.manager.GetConnectedPlatforms(r.Context())}, h.logger)
}

// GetPlatform handles GET /api/v1/platforms/{platform}
func (h *PlatformHandler) GetPlatform(w http.ResponseWriter, r *http.Request) {
	p, ok := h.platformParam(w, r)
	if !ok {
		return
	}

	item, err := h.describe(r, p)
	if err != nil {
		apierrors.WriteMappedError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, item, h.logger)
}

// Connect handles POST /api/v1/platforms/{platform}/connect.
// A flow that cannot be launched is still a 200: the outcome is in the body.
func (h *PlatformHandler) Connect(w http.ResponseWriter, r *http.Request) {
	p, ok := h.platformParam(w, r)
	if !ok {
		return
	}

	authURL, err := h.manager.LaunchOAuthFlow(r.Context(), p)
	response := ConnectResponse{
		Platform:         p,
		Launched:         err == nil,
		AuthorizationURL: authURL,
	}
	if err != nil {
		response.Reason = err.Error()
		if errors.Is(err, credentials.ErrNoURLHandler) {
			response.Reason = "no application can open the authorization URL; open it manually"
		}
	}
	if h.metrics != nil {
		h.metrics.RecordConnect(p, response.Launched)
	}

	writeJSON(w, http.StatusOK, response, h.logger)
}

// PutCredentials handles PUT /api/v1/platforms/{platform}/credentials.
// The body is a credential in its stored JSON form.
func (h *PlatformHandler) PutCredentials(w http.ResponseWriter, r *http.Request) {
	p, ok := h.platformParam(w, r)
	if !ok {
		return
	}

	var cred models.PlatformCredential
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cred); err != nil {
		h.logger.Warn("Failed to decode credential import",
			"platform", p,
			"error", err,
			"remote_addr", r.RemoteAddr)
		if h.metrics != nil {
			h.metrics.IncrementValidationErrors()
		}
		apierrors.WriteError(w, apierrors.ErrCodeValidationError, "Invalid JSON in request body", http.StatusBadRequest, nil)
		return
	}

	if err := h.manager.StoreCredentials(r.Context(), p, &cred); err != nil {
		var validationErr *models.ValidationError
		var details map[string]string
		if errors.As(err, &validationErr) {
			details = map[string]string{"field": validationErr.Field}
			if h.metrics != nil {
				h.metrics.IncrementValidationErrors()
			}
		} else if h.metrics != nil {
			h.metrics.RecordCredentialWrite(p, false)
		}
		apierrors.WriteMappedError(w, err, details)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordCredentialWrite(p, true)
	}

	item, err := h.describe(r, p)
	if err != nil {
		apierrors.WriteMappedError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, item, h.logger)
}

// DeletePlatform handles DELETE /api/v1/platforms/{platform}.
// Removal is idempotent and never reports a storage failure.
func (h *PlatformHandler) DeletePlatform(w http.ResponseWriter, r *http.Request) {
	p, ok := h.platformParam(w, r)
	if !ok {
		return
	}

	h.manager.RemoveCredentials(r.Context(), p)
	if h.metrics != nil {
		h.metrics.RecordRemoval(p)
	}
	w.WriteHeader(http.StatusNoContent)
}
