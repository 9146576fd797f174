package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/service"
)

// LogoutHandler revokes a client's refresh token.
type LogoutHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Logout
//	@Description	Deletes the refresh token so it can no longer be exchanged. Unknown tokens are accepted so logout can be retried.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Security		ClientBasicAuth
//	@Param			client_id		formData	string				false	"Client identifier (unless sent with HTTP Basic)"
//	@Param			client_secret	formData	string				false	"Client secret"
//	@Param			refresh_token	formData	string				true	"Refresh token to revoke"
//	@Success		204
//	@Failure		400				{object}	authsdk.OAuth2Error	"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error	"error, error_description"
//	@Router			/oauth2/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, ok := readOAuthForm(w, r)
	if !ok {
		return
	}

	clientID, clientSecret, err := clientCredentials(r, form)
	if err != nil {
		writeOAuthError(w, r, "logout rejected", err)
		return
	}

	if err := h.TokenService.Logout(r.Context(), clientID, clientSecret, strings.TrimSpace(form.Get("refresh_token"))); err != nil {
		writeOAuthError(w, r, "logout failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
