package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/httpx"
)

// IntrospectHandler serves POST /oauth2/introspect following RFC 7662.
// The calling client authenticates with its secret and may only inspect
// tokens issued to it.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Introspects a token and returns its claims when active (RFC 7662). Inactive tokens return only {"active": false}.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		ClientBasicAuth
//	@Param			token			formData	string					true	"The token to introspect"
//	@Param			token_type_hint	formData	string					false	"Kind of token (token_use decides when omitted)"	Enums(access_token, id_token, refresh_token)
//	@Success		200				{object}	map[string]interface{}	"active and, when active, the token claims"
//	@Failure		400				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/oauth2/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, ok := readOAuthForm(w, r)
	if !ok {
		return
	}

	clientID, clientSecret, err := clientCredentials(r, form)
	if err != nil {
		writeOAuthError(w, r, "introspection rejected", err)
		return
	}

	v, err := h.TokenService.Introspect(r.Context(),
		clientID,
		clientSecret,
		strings.TrimSpace(form.Get("token")),
		strings.TrimSpace(form.Get("token_type_hint")),
	)
	if err != nil {
		writeOAuthError(w, r, "introspection failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, v.Map())
}
