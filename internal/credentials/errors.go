package credentials

import (
	"errors"
	"fmt"

	"github.com/criteo/social-connect/internal/models"
)

var (
	// ErrNoURLHandler is returned when the OS reports no handler for the authorization URL
	ErrNoURLHandler = errors.New("no handler can open the authorization URL")

	// ErrLaunchFailed wraps failures of the capability check or the open action
	ErrLaunchFailed = errors.New("failed to launch authorization")
)

// StorageError reports a failed credential write for one platform
type StorageError struct {
	Platform models.Platform
	Op       string // "store"
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s credentials for %s: %v", e.Op, e.Platform, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
