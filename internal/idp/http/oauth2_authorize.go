package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// maxLoginBody bounds JSON login submissions.
const maxLoginBody = 64 << 10

// AuthorizeHandler serves the authorization endpoint of the code flow.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
}

// HandleGet returns the login prompt for an authorization request.
//
//	@Summary		OAuth2 authorization endpoint (GET)
//	@Description	Validates client_id and echoes the authorization request back so a login form can be rendered.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			client_id				query		string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string					false	"Callback URI (must match a registered redirect URI on login)"
//	@Param			response_type			query		string					false	"Must be 'code'"	default(code)
//	@Param			scope					query		string					false	"Space-delimited list of scopes"	example("openid offline_access")
//	@Param			state					query		string					false	"Opaque value for CSRF protection"
//	@Param			nonce					query		string					false	"OIDC nonce copied into the id token"
//	@Param			code_challenge			query		string					false	"PKCE code challenge"	example("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM")
//	@Param			code_challenge_method	query		string					false	"PKCE method (S256 or plain, defaults to S256)"	default(S256)	Enums(S256, plain)
//	@Param			tenantId				query		string					false	"Tenant the login is for (defaults to the application's tenant)"
//	@Success		200						{object}	authsdk.LoginPrompt		"Login prompt"
//	@Failure		400						{object}	authsdk.OAuth2Error		"error, error_description"
//	@Router			/oauth2/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	req := buildAuthorizeRequest(nil, r.URL.Query())

	prompt, err := h.AuthorizeService.Prompt(r.Context(), req)
	if err != nil {
		writeOAuthError(w, r, "authorize prompt failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginPrompt{
		ClientID:            prompt.ClientID,
		ApplicationName:     prompt.ApplicationName,
		RedirectURI:         prompt.RedirectURI,
		ResponseType:        prompt.ResponseType,
		Scope:               prompt.Scope,
		State:               prompt.State,
		CodeChallenge:       prompt.CodeChallenge,
		CodeChallengeMethod: prompt.CodeChallengeMethod,
		TenantID:            prompt.TenantID,
	})
}

// HandlePost authenticates the user and redirects back to the client with
// an authorization code.
//
//	@Summary		OAuth2 authorization endpoint (POST)
//	@Description	Verifies the user's login id and password for the application and redirects to redirect_uri with a single-use code.
//	@Description	Parameters may be sent in the body (form or JSON) or the query string; the body wins.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded,json
//	@Produce		json
//	@Param			client_id				query		string				true	"OAuth2 client identifier"
//	@Param			redirect_uri			formData	string				true	"Callback URI (must match a registered redirect URI)"
//	@Param			loginId					formData	string				true	"Email or username"
//	@Param			password				formData	string				true	"Password"
//	@Param			scope					formData	string				false	"Space-delimited list of scopes"
//	@Param			state					formData	string				false	"Opaque value returned with the code"
//	@Param			nonce					formData	string				false	"OIDC nonce"
//	@Param			code_challenge			formData	string				false	"PKCE code challenge"
//	@Param			code_challenge_method	formData	string				false	"PKCE method"	Enums(S256, plain)
//	@Success		302						{string}	string				"Redirect to redirect_uri with code and state"
//	@Failure		400						{object}	httpx.Envelope		"success, message"
//	@Failure		401						{object}	httpx.Envelope		"success, message"
//	@Failure		500						{object}	httpx.Envelope		"success, message"
//	@Router			/oauth2/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	body, ok := readLoginBody(w, r)
	if !ok {
		return
	}

	req := service.LoginRequest{
		AuthorizeRequest: buildAuthorizeRequest(body, r.URL.Query()),
		LoginID:          strings.TrimSpace(body.Get("loginId")),
		Password:         body.Get("password"),
	}

	res, err := h.AuthorizeService.Login(r.Context(), req)
	if err != nil {
		writeFailure(w, r, "authorize login failed", err)
		return
	}

	slogx.FromContext(r.Context()).Info("authorization code issued", "client_id", req.ClientID)
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

// readLoginBody accepts a form or a flat JSON object of strings.
func readLoginBody(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if httpx.HasContentType(r, "application/json") {
		var raw map[string]string
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&raw); err != nil {
			httpx.WriteFailure(w, http.StatusBadRequest, "invalid JSON body")
			return nil, false
		}
		body := make(url.Values, len(raw))
		for k, v := range raw {
			body.Set(k, v)
		}
		return body, true
	}

	if ct := r.Header.Get("Content-Type"); ct != "" && !httpx.HasContentType(r, "application/x-www-form-urlencoded") {
		httpx.WriteFailure(w, http.StatusBadRequest, "content-type must be application/x-www-form-urlencoded or application/json")
		return nil, false
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid form body")
		return nil, false
	}
	return r.PostForm, true
}

func buildAuthorizeRequest(primary, secondary url.Values) service.AuthorizeRequest {
	pick := func(key string) string {
		if primary != nil {
			if v := strings.TrimSpace(primary.Get(key)); v != "" {
				return v
			}
		}
		if secondary != nil {
			return strings.TrimSpace(secondary.Get(key))
		}
		return ""
	}

	return service.AuthorizeRequest{
		ClientID:            pick("client_id"),
		RedirectURI:         pick("redirect_uri"),
		ResponseType:        pick("response_type"),
		Scope:               strings.Join(httpx.ParseSpaceDelimitedFields(pick("scope")), " "),
		State:               pick("state"),
		Nonce:               pick("nonce"),
		CodeChallenge:       pick("code_challenge"),
		CodeChallengeMethod: pick("code_challenge_method"),
		TenantID:            pick("tenantId"),
	}
}
