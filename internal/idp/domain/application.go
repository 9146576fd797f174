package domain

import (
	"fmt"
	"net/url"
	"slices"
	"time"
)

// Grant types an application may enable.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

// KnownGrants lists every grant the token endpoint dispatches.
var KnownGrants = []string{GrantAuthorizationCode, GrantPassword, GrantClientCredentials, GrantRefreshToken}

// Application is an OAuth client owned by a tenant.
type Application struct {
	ID               string
	TenantID         string
	Name             string
	Active           bool
	AccessTokenKeyID string
	IDTokenKeyID     string
	Config           ApplicationConfiguration
	CreatedAt        time.Time
}

// ApplicationConfiguration is persisted as one JSON document.
type ApplicationConfiguration struct {
	OAuth OAuthConfiguration `json:"oauthConfiguration"`
	JWT   JWTConfiguration   `json:"jwtConfiguration"`
}

type OAuthConfiguration struct {
	ClientSecretHash       string   `json:"clientSecretHash,omitempty"`
	AuthorizedRedirectURLs []string `json:"authorizedRedirectURLs,omitempty"`
	AuthorizedOriginURLs   []string `json:"authorizedOriginURLs,omitempty"`
	EnabledGrants          []string `json:"enabledGrants,omitempty"`
	LogoutURL              string   `json:"logoutURL,omitempty"`
	Scopes                 []string `json:"scopes,omitempty"`
	RequirePKCE            bool     `json:"requirePKCE,omitempty"`
}

type JWTConfiguration struct {
	AccessTokenTTLSeconds  int `json:"timeToLiveInSeconds,omitempty"`
	RefreshTokenTTLSeconds int `json:"refreshTokenTimeToLiveInSeconds,omitempty"`
	IDTokenTTLSeconds      int `json:"idTokenTimeToLiveInSeconds,omitempty"`
}

// GrantEnabled reports whether grant is enabled for the application.
func (a *Application) GrantEnabled(grant string) bool {
	return slices.Contains(a.Config.OAuth.EnabledGrants, grant)
}

// RedirectAllowed reports whether uri exactly matches an authorized
// redirect URL.
func (a *Application) RedirectAllowed(uri string) bool {
	return uri != "" && slices.Contains(a.Config.OAuth.AuthorizedRedirectURLs, uri)
}

// AccessTokenTTL resolves the lifetime from the application, then the
// tenant, then the default.
func (a *Application) AccessTokenTTL(t *Tenant) time.Duration {
	return pickTTL(a.Config.JWT.AccessTokenTTLSeconds, tenantTTL(t, func(c TenantConfiguration) int { return c.AccessTokenTTLSeconds }), DefaultAccessTokenTTL)
}

func (a *Application) RefreshTokenTTL(t *Tenant) time.Duration {
	return pickTTL(a.Config.JWT.RefreshTokenTTLSeconds, tenantTTL(t, func(c TenantConfiguration) int { return c.RefreshTokenTTLSeconds }), DefaultRefreshTokenTTL)
}

func (a *Application) IDTokenTTL(t *Tenant) time.Duration {
	return pickTTL(a.Config.JWT.IDTokenTTLSeconds, tenantTTL(t, func(c TenantConfiguration) int { return c.IDTokenTTLSeconds }), DefaultIDTokenTTL)
}

func tenantTTL(t *Tenant, pick func(TenantConfiguration) int) int {
	if t == nil {
		return 0
	}
	return pick(t.Config)
}

func pickTTL(app, tenant int, def time.Duration) time.Duration {
	switch {
	case app > 0:
		return time.Duration(app) * time.Second
	case tenant > 0:
		return time.Duration(tenant) * time.Second
	default:
		return def
	}
}

// Validate checks the application before it is written.
func (a *Application) Validate() error {
	if a.ID == "" || a.TenantID == "" {
		return fmt.Errorf("%w: application requires id and tenant", ErrInvalid)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: application %s requires a name", ErrInvalid, a.ID)
	}
	for _, g := range a.Config.OAuth.EnabledGrants {
		if !slices.Contains(KnownGrants, g) {
			return fmt.Errorf("%w: application %s enables unknown grant %q", ErrInvalid, a.ID, g)
		}
	}
	for _, raw := range append(slices.Clone(a.Config.OAuth.AuthorizedRedirectURLs), a.Config.OAuth.AuthorizedOriginURLs...) {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: application %s has invalid url %q", ErrInvalid, a.ID, raw)
		}
	}
	j := a.Config.JWT
	if j.AccessTokenTTLSeconds < 0 || j.RefreshTokenTTLSeconds < 0 || j.IDTokenTTLSeconds < 0 {
		return fmt.Errorf("%w: application %s has a negative token lifetime", ErrInvalid, a.ID)
	}
	return nil
}
