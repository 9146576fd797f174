package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
	"github.com/aussiebroadwan/idp/pkg/httpx"
)

// TokenHandler serves POST /oauth2/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues tokens using the authorization_code, password, client_credentials and refresh_token grants.
//	@Description	Clients authenticate with client_id and client_secret in the form or with HTTP Basic.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		ClientBasicAuth
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, password, client_credentials, refresh_token)
//	@Param			client_id		formData	string					false	"Client identifier (unless sent with HTTP Basic)"
//	@Param			client_secret	formData	string					false	"Client secret (required for client_credentials)"
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI the code was issued for"
//	@Param			code_verifier	formData	string					false	"PKCE code_verifier (required when PKCE was used)"
//	@Param			loginId			formData	string					false	"Email or username (password grant)"
//	@Param			password		formData	string					false	"Password (password grant)"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Success		200				{object}	authsdk.TokenResponse	"id_token, access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		500				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/oauth2/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, ok := readOAuthForm(w, r)
	if !ok {
		return
	}

	clientID, clientSecret, err := clientCredentials(r, form)
	if err != nil {
		writeOAuthError(w, r, "token request rejected", err)
		return
	}

	loginID := strings.TrimSpace(form.Get("loginId"))
	if loginID == "" {
		loginID = strings.TrimSpace(form.Get("username"))
	}

	resp, err := h.TokenService.Exchange(r.Context(), service.TokenRequest{
		GrantType:    strings.TrimSpace(form.Get("grant_type")),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         strings.TrimSpace(form.Get("code")),
		CodeVerifier: strings.TrimSpace(form.Get("code_verifier")),
		RedirectURI:  strings.TrimSpace(form.Get("redirect_uri")),
		LoginID:      loginID,
		Password:     form.Get("password"),
		RefreshToken: strings.TrimSpace(form.Get("refresh_token")),
		Scope:        strings.Join(httpx.ParseSpaceDelimitedFields(form.Get("scope")), " "),
	})
	if err != nil {
		writeOAuthError(w, r, "token exchange failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		IDToken:        resp.IDToken,
		AccessToken:    resp.AccessToken,
		RefreshToken:   resp.RefreshToken,
		RefreshTokenID: resp.RefreshTokenID,
		TokenType:      resp.TokenType,
		ExpiresIn:      resp.ExpiresIn,
		Scope:          resp.Scope,
	})
}

// readOAuthForm enforces the form content type and parses the body. A
// missing content type is rejected too. It writes the error response itself.
func readOAuthForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if !httpx.HasContentType(r, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return nil, false
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return nil, false
	}
	return r.PostForm, true
}

// clientCredentials reads the client from HTTP Basic (RFC 6749 2.3.1) or,
// failing that, from the form. A form client_id that disagrees with Basic
// is rejected.
func clientCredentials(r *http.Request, form url.Values) (string, string, error) {
	formID := strings.TrimSpace(form.Get("client_id"))

	user, pass, ok := r.BasicAuth()
	if !ok {
		return formID, form.Get("client_secret"), nil
	}

	id, err := url.QueryUnescape(user)
	if err != nil {
		return "", "", service.ErrInvalidClient
	}
	secret, err := url.QueryUnescape(pass)
	if err != nil {
		return "", "", service.ErrInvalidClient
	}
	if formID != "" && formID != id {
		return "", "", service.ErrInvalidClient
	}
	return id, secret, nil
}
