package config

import (
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleOAuthConfig returns the authorization-code flow config for Google
// sign-in, or nil when no client id is configured.
func (c *Config) GoogleOAuthConfig() *oauth2.Config {
	if c.GoogleClientID == "" {
		return nil
	}

	redirectURL := strings.TrimRight(c.OAuthRedirectURL, "/")
	if redirectURL == "" {
		redirectURL = "http://localhost:" + c.Port
	}

	return &oauth2.Config{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  redirectURL + "/api/v1/auth/google/callback",
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}
