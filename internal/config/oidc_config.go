package config

// OidcConfig describes the upstream identity provider used by the SSO
// callback flow. When the provider is not configured (no issuer URL) the SSO
// routes are not registered and sessions can only be issued directly.
type OidcConfig interface {
	GetOidcIssuerURL() string
	GetOidcClientID() string
	GetOidcClientSecret() string
	GetOidcRedirectURL() string
	OidcEnabled() bool
}

type Oidc struct{}

var _ OidcConfig = Oidc{}

func (Oidc) GetOidcIssuerURL() string {
	return GetEnv("OIDC_ISSUER_URL", "")
}

func (Oidc) GetOidcClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (Oidc) GetOidcClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (Oidc) GetOidcRedirectURL() string {
	return GetEnv("OIDC_REDIRECT_URL", "http://localhost:8080/auth/sso/callback")
}

func (o Oidc) OidcEnabled() bool {
	return o.GetOidcIssuerURL() != "" && o.GetOidcClientID() != ""
}
