package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/criteo/social-connect/internal/credentials"
	"github.com/criteo/social-connect/internal/models"
	"github.com/criteo/social-connect/internal/oauth"
	"github.com/criteo/social-connect/internal/storage"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	ErrCodePlatformNotSupported ErrorCode = "PLATFORM_NOT_SUPPORTED"
	ErrCodeValidationError      ErrorCode = "VALIDATION_ERROR"
	ErrCodeStorageUnavailable   ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeInvalidState         ErrorCode = "INVALID_STATE"
	ErrCodeInvalidCallback      ErrorCode = "INVALID_CALLBACK"
	ErrCodeAuthorizationDenied  ErrorCode = "AUTHORIZATION_DENIED"
	ErrCodeTokenExchangeFailed  ErrorCode = "TOKEN_EXCHANGE_FAILED"
	ErrCodeClientNotConfigured  ErrorCode = "CLIENT_NOT_CONFIGURED"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimited          ErrorCode = "RATE_LIMITED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, code ErrorCode, message string, statusCode int, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// MapError maps domain errors to HTTP responses.
// Storage failures get a generic message; the cause is only logged.
func MapError(err error) (ErrorCode, string, int) {
	var validationErr *models.ValidationError
	var storageErr *credentials.StorageError

	switch {
	case errors.Is(err, models.ErrUnsupportedPlatform):
		return ErrCodePlatformNotSupported, "Platform not supported", http.StatusNotFound

	case errors.As(err, &validationErr):
		return ErrCodeValidationError, validationErr.Error(), http.StatusBadRequest

	case errors.As(err, &storageErr), errors.Is(err, storage.ErrStorageUnavailable):
		return ErrCodeStorageUnavailable, "Couldn't save connection", http.StatusServiceUnavailable

	case errors.Is(err, oauth.ErrInvalidState):
		return ErrCodeInvalidState, "Authorization state is invalid or expired; start the connection again", http.StatusBadRequest

	case errors.Is(err, oauth.ErrInvalidCallback):
		return ErrCodeInvalidCallback, err.Error(), http.StatusBadRequest

	case errors.Is(err, oauth.ErrAuthorizationDenied):
		return ErrCodeAuthorizationDenied, err.Error(), http.StatusBadRequest

	case errors.Is(err, oauth.ErrTokenExchange):
		return ErrCodeTokenExchangeFailed, "The platform rejected the authorization code", http.StatusBadGateway

	case errors.Is(err, oauth.ErrClientNotConfigured):
		return ErrCodeClientNotConfigured, "No OAuth client is configured for this platform", http.StatusConflict

	default:
		return ErrCodeInternal, "Internal server error", http.StatusInternalServerError
	}
}

// WriteMappedError writes the response MapError selects for err
func WriteMappedError(w http.ResponseWriter, err error, details map[string]string) {
	code, msg, status := MapError(err)
	WriteError(w, code, msg, status, details)
}
