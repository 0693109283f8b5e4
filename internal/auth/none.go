package auth

import (
	"net/http"
)

// anonymous is reported for every request when authentication is disabled
var anonymous = &User{Username: "anonymous"}

// NoAuth implements Authenticator with no authentication (all requests allowed).
// Meant for a daemon bound to the loopback interface.
type NoAuth struct{}

// NewNoAuth creates a new NoAuth authenticator
func NewNoAuth() *NoAuth {
	return &NoAuth{}
}

// Authenticate always succeeds as the anonymous user
func (a *NoAuth) Authenticate(r *http.Request) (*User, error) {
	return anonymous, nil
}

// Middleware tags every request with the anonymous user
func (a *NoAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), anonymous)))
		})
	}
}
