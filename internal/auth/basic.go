package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials is returned for unknown users and wrong passwords alike
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserConfig is one users.yaml entry
type UserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"` // bcrypt hash
}

// UsersFile is the users.yaml document
type UsersFile struct {
	Users []UserConfig `yaml:"users"`
}

// decoyHash is compared against when the username is unknown, so both
// failure paths cost one bcrypt comparison
var decoyHash, _ = bcrypt.GenerateFromPassword([]byte("social-connect-decoy"), bcrypt.DefaultCost)

// BasicAuth checks HTTP Basic credentials against bcrypt hashes
type BasicAuth struct {
	hashes map[string][]byte
	logger *slog.Logger
}

// LoadUsersFile reads and checks a users.yaml file
func LoadUsersFile(path string) (*UsersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var doc UsersFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}
	if len(doc.Users) == 0 {
		return nil, fmt.Errorf("users file %s defines no users", path)
	}

	seen := make(map[string]bool, len(doc.Users))
	for i, u := range doc.Users {
		switch {
		case u.Username == "" || u.Password == "":
			return nil, fmt.Errorf("users file entry %d must have username and password", i)
		case seen[u.Username]:
			return nil, fmt.Errorf("user %q is defined more than once", u.Username)
		}
		if _, err := bcrypt.Cost([]byte(u.Password)); err != nil {
			return nil, fmt.Errorf("password for user %q is not a bcrypt hash (use 'social-connectd auth hash-password')", u.Username)
		}
		seen[u.Username] = true
	}
	return &doc, nil
}

// NewBasicAuth builds an authenticator from a users.yaml file
func NewBasicAuth(usersFile string, logger *slog.Logger) (*BasicAuth, error) {
	doc, err := LoadUsersFile(usersFile)
	if err != nil {
		return nil, err
	}

	hashes := make(map[string][]byte, len(doc.Users))
	for _, u := range doc.Users {
		hashes[u.Username] = []byte(u.Password)
	}

	logger.Info("Basic auth enabled",
		"users_file", usersFile,
		"user_count", len(hashes))

	return &BasicAuth{hashes: hashes, logger: logger}, nil
}

// Authenticate checks the request's Basic credentials
func (a *BasicAuth) Authenticate(r *http.Request) (*User, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, fmt.Errorf("%w: no basic auth header", ErrInvalidCredentials)
	}

	hash, known := a.hashes[username]
	if !known {
		hash = decoyHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !known {
		a.logger.Warn("Authentication rejected",
			"username", username,
			"known_user", known,
			"remote_addr", r.RemoteAddr)
		return nil, ErrInvalidCredentials
	}

	return &User{Username: username}, nil
}

// Middleware challenges every request without valid credentials
func (a *BasicAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.Authenticate(r)
			if err != nil {
				Challenge(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// HashPassword returns the bcrypt hash stored in users.yaml
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
