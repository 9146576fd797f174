package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Sets for public key discovery.
type JWKSHandler struct {
	JWKSService *service.JWKSService
}

// HandleGlobal godoc
//
//	@Summary		Get JWKS
//	@Description	Returns every published asymmetric signing key. HMAC keys are never published.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func (h *JWKSHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	set, err := h.JWKSService.Global(r.Context())
	if err != nil {
		writeOAuthError(w, r, "jwks failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(set))
}

// HandleTenant godoc
//
//	@Summary		Get tenant JWKS
//	@Description	Returns the keys tokens of one tenant may be signed with: the tenant defaults and its applications' overrides.
//	@Tags			well-known
//	@Produce		json
//	@Param			tenantId	path		string					true	"Tenant id"
//	@Success		200			{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Failure		400			{object}	authsdk.OAuth2Error		"unknown tenant"
//	@Router			/tenants/{tenantId}/.well-known/jwks.json [get].
func (h *JWKSHandler) HandleTenant(w http.ResponseWriter, r *http.Request) {
	set, err := h.JWKSService.ForTenant(r.Context(), r.PathValue("tenantId"))
	if err != nil {
		writeOAuthError(w, r, "tenant jwks failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(set))
}

// DiscoveryHandler godoc
//
//	@Summary		OpenID Connect discovery
//	@Description	Returns the OpenID provider metadata for this issuer.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.DiscoveryDocument
//	@Router			/.well-known/openid-configuration [get].
func DiscoveryHandler(issuer string) http.HandlerFunc {
	doc := discoveryDocument(issuer)
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}

func discoveryDocument(issuer string) authsdk.DiscoveryDocument {
	base := strings.TrimSuffix(issuer, "/")
	return authsdk.DiscoveryDocument{
		Issuer:                 base,
		AuthorizationEndpoint:  base + "/oauth2/authorize",
		TokenEndpoint:          base + "/oauth2/token",
		IntrospectionEndpoint:  base + "/oauth2/introspect",
		UserInfoEndpoint:       base + "/oauth2/userinfo",
		EndSessionEndpoint:     base + "/oauth2/logout",
		JWKSURI:                base + "/.well-known/jwks.json",
		ResponseTypesSupported: []string{"code"},
		GrantTypesSupported: []string{
			domain.GrantAuthorizationCode,
			domain.GrantPassword,
			domain.GrantClientCredentials,
			domain.GrantRefreshToken,
		},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  jwtx.SupportedAlgorithms,
		CodeChallengeMethodsSupported:     []string{service.PKCEMethodS256, service.PKCEMethodPlain},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		ScopesSupported: []string{
			service.ScopeOpenID,
			service.ScopeOfflineAccess,
			service.ScopeProfile,
			service.ScopeEmail,
		},
	}
}
