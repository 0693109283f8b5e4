package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/criteo/social-connect/internal/storage"
)

// healthPingTimeout bounds the storage check so probes never hang
const healthPingTimeout = 5 * time.Second

// HealthHandler handles health check requests
type HealthHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store storage.Store, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult represents a single health check result
type CheckResult struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// GetHealth handles GET /api/v1/health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	response := HealthResponse{
		Status: "healthy",
		Checks: make(map[string]CheckResult),
	}
	status := http.StatusOK

	start := time.Now()
	err := h.store.Ping(ctx)
	check := CheckResult{Status: "healthy", DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "unhealthy"
		check.Message = err.Error()
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable

		h.logger.Error("Health check failed: storage unhealthy", "error", err)
	}
	response.Checks["storage"] = check

	writeJSON(w, status, response, h.logger)
}

// writeJSON encodes body with the given status
func writeJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
