package http

import (
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
	"github.com/aussiebroadwan/idp/pkg/httpx"
)

// UserInfoHandler serves the OIDC userinfo endpoint. It runs behind
// httpx.AuthnMiddleware.
type UserInfoHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Get current user information
//	@Description	Returns the user the bearer access token was issued to.
//	@Tags			OAuth2
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserInfoResponse	"sub, email, preferred_username, tid, roles"
//	@Failure		401	{object}	authsdk.OAuth2Error			"error, error_description"
//	@Router			/oauth2/userinfo [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	info, err := h.TokenService.UserInfo(r.Context(), claims)
	if err != nil {
		if e := oauthError(err); e.StatusCode == http.StatusUnauthorized {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		writeOAuthError(w, r, "userinfo failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		Subject:           info.Subject,
		Email:             info.Email,
		PreferredUsername: info.PreferredUsername,
		TenantID:          info.TenantID,
		Roles:             info.Roles,
	})
}
