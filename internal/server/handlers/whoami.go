package handlers

import (
	"log/slog"
	"net/http"

	"github.com/criteo/social-connect/internal/auth"
)

// WhoamiHandler handles whoami requests
type WhoamiHandler struct {
	authenticator auth.Authenticator
	onFailure     func()
	logger        *slog.Logger
}

// NewWhoamiHandler creates a new whoami handler. onFailure may be nil.
func NewWhoamiHandler(authenticator auth.Authenticator, onFailure func(), logger *slog.Logger) *WhoamiHandler {
	return &WhoamiHandler{
		authenticator: authenticator,
		onFailure:     onFailure,
		logger:        logger,
	}
}

// WhoamiResponse represents the whoami response
type WhoamiResponse struct {
	Username string `json:"username"`
}

// GetWhoami handles GET /api/v1/whoami
// This endpoint always authenticates, even though it is a read
func (h *WhoamiHandler) GetWhoami(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticator.Authenticate(r)
	if err != nil {
		h.logger.Debug("Authentication failed for whoami", "error", err)
		if h.onFailure != nil {
			h.onFailure()
		}
		auth.Challenge(w)
		return
	}

	writeJSON(w, http.StatusOK, WhoamiResponse{Username: user.Username}, h.logger)
}
