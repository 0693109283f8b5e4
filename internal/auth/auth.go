package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/criteo/social-connect/internal/apierrors"
)

// Realm is announced in WWW-Authenticate challenges
const Realm = "Social Connect"

// User represents an authenticated user
type User struct {
	Username string
}

// Authenticator defines the authentication interface
type Authenticator interface {
	// Authenticate validates request credentials and returns user info
	Authenticate(r *http.Request) (*User, error)

	// Middleware returns HTTP middleware for the auth method
	Middleware() func(http.Handler) http.Handler
}

type userKey struct{}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored by an auth middleware, if any
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey{}).(*User)
	return user, ok
}

// Challenge writes a 401 error envelope with the Basic challenge for Realm
func Challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", Realm))
	apierrors.WriteError(w, apierrors.ErrCodeUnauthorized, "Authentication required", http.StatusUnauthorized, nil)
}

// New builds the authenticator selected by authType ("none" or "basic")
func New(authType, usersFile string, logger *slog.Logger) (Authenticator, error) {
	switch authType {
	case "", "none":
		logger.Info("Authentication disabled (auth.type=none)")
		return NewNoAuth(), nil
	case "basic":
		return NewBasicAuth(usersFile, logger)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", authType)
	}
}
