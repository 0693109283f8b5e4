package middleware

import (
	"net/http"

	"github.com/criteo/social-connect/internal/auth"
)

// RequireAuth returns middleware that requires authentication for write operations.
// Read operations (GET) pass through untouched. onFailure, when set, is called
// for every rejected request.
func RequireAuth(authenticator auth.Authenticator, onFailure func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authenticator.Authenticate(r)
			if err != nil {
				if onFailure != nil {
					onFailure()
				}
				auth.Challenge(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
