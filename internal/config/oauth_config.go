package config

import (
	"strings"
	"time"
)

type OAuthConfig interface {
	GetClientID() string
	GetIssuer() string
	GetAuthorizationEndpoint() string
	GetTokenEndpoint() string
	GetLogoutEndpoint() string
	GetRedirectURL() string
	GetScopes() []string
	GetExtraAuthParams() map[string]string
	GetUseDiscovery() bool
	GetLoginTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetClientID() string {
	return GetEnv("BYTEFIT_CLIENT_ID", "oauth2-pkce-client")
}

// GetIssuer returns the realm base URL, e.g. "http://localhost:8181/realms/ByteFit"
func (OAuth) GetIssuer() string {
	return strings.TrimSuffix(GetEnv("BYTEFIT_ISSUER", "http://localhost:8181/realms/ByteFit"), "/")
}

func (o OAuth) GetAuthorizationEndpoint() string {
	return GetEnv("BYTEFIT_AUTH_ENDPOINT", o.GetIssuer()+"/protocol/openid-connect/auth")
}

func (o OAuth) GetTokenEndpoint() string {
	return GetEnv("BYTEFIT_TOKEN_ENDPOINT", o.GetIssuer()+"/protocol/openid-connect/token")
}

func (o OAuth) GetLogoutEndpoint() string {
	return GetEnv("BYTEFIT_LOGOUT_ENDPOINT", o.GetIssuer()+"/protocol/openid-connect/logout")
}

func (OAuth) GetRedirectURL() string {
	return GetEnv("BYTEFIT_REDIRECT_URL", "http://localhost:5173/callback")
}

func (OAuth) GetScopes() []string {
	return strings.Fields(GetEnv("BYTEFIT_SCOPES", "openid profile email offline_access"))
}

// GetExtraAuthParams forces the login screen even when the provider still has a session
func (OAuth) GetExtraAuthParams() map[string]string {
	return map[string]string{
		"prompt":  "login",
		"max_age": "0",
	}
}

func (OAuth) GetUseDiscovery() bool {
	return GetEnv("BYTEFIT_OIDC_DISCOVERY", "true") == "true"
}

func (OAuth) GetLoginTimeout() time.Duration {
	return 5 * time.Minute
}
