package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/criteo/social-connect/internal/client"
)

// Exit codes for different error scenarios
const (
	ExitSuccess          = 0 // Success
	ExitGeneralError     = 1 // General error (network failure, server 500, unknown error)
	ExitInvalidArguments = 2 // Invalid arguments/usage (unknown platform, bad flag value)
	ExitNotFound         = 3 // Resource not found (404)
	ExitConflict         = 4 // Conflict (409), e.g. OAuth client not configured
	ExitAuthError        = 5 // Authentication error (401)
	ExitPermissionDenied = 6 // Permission denied (403)
	ExitStorageError     = 7 // Daemon could not reach its credential store (503)
)

// ExitError carries the process exit code up to main
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WithCode builds an error that exits with code
func WithCode(code int, message string) error {
	return &ExitError{Code: code, Message: message}
}

// Wrap attaches a message and the general error code to err
func Wrap(err error, message string) error {
	return &ExitError{Code: ExitGeneralError, Message: message, Err: err}
}

// MapHTTPStatusToExitCode maps HTTP status codes to exit codes
func MapHTTPStatusToExitCode(statusCode int) int {
	switch statusCode {
	case http.StatusUnauthorized:
		return ExitAuthError
	case http.StatusForbidden:
		return ExitPermissionDenied
	case http.StatusNotFound:
		return ExitNotFound
	case http.StatusConflict:
		return ExitConflict
	case http.StatusBadRequest:
		return ExitInvalidArguments
	case http.StatusServiceUnavailable:
		return ExitStorageError
	default:
		if statusCode >= 400 && statusCode < 500 {
			return ExitInvalidArguments
		}
		return ExitGeneralError
	}
}

// FromAPI converts a client error into an ExitError with the matching code
func FromAPI(err error, message string) error {
	var apiErr *client.APIError
	if !stderrors.As(err, &apiErr) {
		return Wrap(err, message)
	}

	text := apiErr.Error()
	if message != "" {
		text = message + ": " + text
	}
	if apiErr.StatusCode == http.StatusUnauthorized {
		text += ". Try running 'socialctl login' to authenticate"
	}
	return &ExitError{Code: MapHTTPStatusToExitCode(apiErr.StatusCode), Message: text}
}

// Report prints err to w and returns the exit code it carries
func Report(w io.Writer, err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintf(w, "Error: %s\n", msg)
		}
		return exitErr.Code
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return ExitGeneralError
}
