package authsdk

import "github.com/aussiebroadwan/idp/pkg/jwtx"

// TokenResponse is the token endpoint success body.
type TokenResponse struct {
	IDToken        string `json:"id_token,omitempty"`
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	RefreshTokenID string `json:"refreshTokenId,omitempty"`
	TokenType      string `json:"token_type"`
	ExpiresIn      int    `json:"expires_in"`
	Scope          string `json:"scope,omitempty"`
}

// IntrospectionResponse is {active, ...claims}. Claims holds every member
// except active.
type IntrospectionResponse struct {
	Active bool
	Claims map[string]any
}

// LoginPrompt is returned by GET /oauth2/authorize and echoes the
// authorization request back for the login form.
type LoginPrompt struct {
	ClientID            string `json:"client_id"`
	ApplicationName     string `json:"application_name,omitempty"`
	RedirectURI         string `json:"redirect_uri,omitempty"`
	ResponseType        string `json:"response_type,omitempty"`
	Scope               string `json:"scope,omitempty"`
	State               string `json:"state,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
	TenantID            string `json:"tenantId,omitempty"`
}

// UserInfoResponse is the OIDC userinfo body.
type UserInfoResponse struct {
	Subject           string   `json:"sub"`
	Email             string   `json:"email,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	TenantID          string   `json:"tid,omitempty"`
	Roles             []string `json:"roles,omitempty"`
}

// HealthResponse is the body of /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// DiscoveryDocument is the subset of OIDC discovery metadata the service
// publishes.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
}

// JWKSResponse is a published key set.
type JWKSResponse = jwtx.JWKS
