package oauth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/criteo/social-connect/internal/models"
)

// DeepLinkHost is the host of app deep links: <scheme>://oauth/<platform>?code=...
const DeepLinkHost = "oauth"

// Callback is the authorization result delivered by the provider redirect
type Callback struct {
	Platform         models.Platform
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackFromQuery reads the standard OAuth redirect parameters
func CallbackFromQuery(p models.Platform, q url.Values) Callback {
	return Callback{
		Platform:         p,
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

func (c Callback) describeError() string {
	if c.ErrorDescription != "" {
		return c.Error + ": " + c.ErrorDescription
	}
	return c.Error
}

// ParseCallbackURL parses either a loopback redirect
// (http(s)://host/oauth/callback/<platform>?...) or an app deep link
// (<scheme>://oauth/<platform>?... or <scheme>://oauth/callback/<platform>?...).
func ParseCallbackURL(raw string) (Callback, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Callback{}, fmt.Errorf("%w: %w", ErrInvalidCallback, err)
	}
	if u.Scheme == "" {
		return Callback{}, fmt.Errorf("%w: URL has no scheme", ErrInvalidCallback)
	}

	var segments []string
	switch u.Scheme {
	case "http", "https":
		rest, ok := strings.CutPrefix(u.Path, CallbackPath)
		if !ok {
			return Callback{}, fmt.Errorf("%w: path must start with %s", ErrInvalidCallback, CallbackPath)
		}
		segments = []string{rest}
	default:
		if u.Host != DeepLinkHost {
			return Callback{}, fmt.Errorf("%w: deep link host must be %q", ErrInvalidCallback, DeepLinkHost)
		}
		segments = strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) == 2 && segments[0] == "callback" {
			segments = segments[1:]
		}
	}

	if len(segments) != 1 || segments[0] == "" {
		return Callback{}, fmt.Errorf("%w: missing platform", ErrInvalidCallback)
	}
	p, err := models.ParsePlatform(strings.Trim(segments[0], "/"))
	if err != nil {
		return Callback{}, err
	}

	q := u.Query()
	// Some providers return the result in the fragment
	if u.Fragment != "" {
		if fq, err := url.ParseQuery(u.Fragment); err == nil {
			for k, v := range fq {
				if q.Get(k) == "" {
					q[k] = v
				}
			}
		}
	}
	return CallbackFromQuery(p, q), nil
}
