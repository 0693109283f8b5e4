package errors

import (
	"bytes"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/criteo/social-connect/internal/client"
)

func TestMapHTTPStatusToExitCode(t *testing.T) {
	tests := []struct {
		status int
		want   int
	}{
		{http.StatusUnauthorized, ExitAuthError},
		{http.StatusForbidden, ExitPermissionDenied},
		{http.StatusNotFound, ExitNotFound},
		{http.StatusConflict, ExitConflict},
		{http.StatusBadRequest, ExitInvalidArguments},
		{http.StatusTooManyRequests, ExitInvalidArguments},
		{http.StatusServiceUnavailable, ExitStorageError},
		{http.StatusBadGateway, ExitGeneralError},
		{http.StatusInternalServerError, ExitGeneralError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapHTTPStatusToExitCode(tt.status), "status %d", tt.status)
	}
}

func TestFromAPI(t *testing.T) {
	err := FromAPI(&client.APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Authentication required"}, "failed to connect twitter")

	var exitErr *ExitError
	assert.True(t, stderrors.As(err, &exitErr))
	assert.Equal(t, ExitAuthError, exitErr.Code)
	assert.Contains(t, err.Error(), "failed to connect twitter: Authentication required")
	assert.Contains(t, err.Error(), "socialctl login")

	err = FromAPI(stderrors.New("dial tcp: refused"), "failed to list platforms")
	assert.True(t, stderrors.As(err, &exitErr))
	assert.Equal(t, ExitGeneralError, exitErr.Code)
	assert.Equal(t, "failed to list platforms: dial tcp: refused", err.Error())
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ExitSuccess, Report(&buf, nil))
	assert.Empty(t, buf.String())

	assert.Equal(t, ExitStorageError, Report(&buf, &ExitError{Code: ExitStorageError, Message: "Couldn't save connection"}))
	assert.Equal(t, "Error: Couldn't save connection\n", buf.String())

	buf.Reset()
	assert.Equal(t, ExitAuthError, Report(&buf, WithCode(ExitAuthError, "")))
	assert.Empty(t, buf.String())

	assert.Equal(t, ExitGeneralError, Report(&buf, stderrors.New("boom")))
	assert.Equal(t, "Error: boom\n", buf.String())
}
