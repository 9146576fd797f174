package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// APIHandler serves the API-key protected first-party endpoints.
type APIHandler struct {
	Store    store.Store
	Tokens   *service.TokenService
	Resolver *service.KeyResolver
	Roles    *service.RoleResolver
}

// RolesResponse lists role ids.
type RolesResponse struct {
	Roles []string `json:"roles"`
}

// RevokeResponse reports whether a refresh token existed.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// HandleUserRoles godoc
//
//	@Summary		List a user's roles
//	@Description	Returns role ids the user holds in an application (defaults plus group roles) or through the groups of a tenant.
//	@Description	Exactly one of applicationId or tenantId must be given.
//	@Tags			API
//	@Produce		json
//	@Security		APIKeyAuth
//	@Param			X-Tenant-ID		header		string			false	"Tenant the API key is used for"
//	@Param			userId			path		string			true	"User id"
//	@Param			applicationId	query		string			false	"Application id"
//	@Param			tenantId		query		string			false	"Tenant id"
//	@Success		200				{object}	httpx.Envelope	"data: {roles}"
//	@Failure		400				{object}	httpx.Envelope	"success, message"
//	@Failure		401				{object}	httpx.Envelope	"success, message"
//	@Router			/api/v1/users/{userId}/roles [get].
func (h *APIHandler) HandleUserRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("userId")
	appID := strings.TrimSpace(r.URL.Query().Get("applicationId"))
	tenantID := strings.TrimSpace(r.URL.Query().Get("tenantId"))

	if (appID == "") == (tenantID == "") {
		httpx.WriteFailure(w, http.StatusBadRequest, "exactly one of applicationId or tenantId is required")
		return
	}

	var roles []string
	if appID != "" {
		app, err := h.application(ctx, appID)
		if err != nil {
			writeFailure(w, r, "load application failed", err)
			return
		}
		if !keyCovers(ctx, app.TenantID) {
			httpx.WriteFailure(w, http.StatusUnauthorized, service.ErrNotAuthorized.Error())
			return
		}
		roles, err = h.Roles.RolesForUserAndApplication(ctx, userID, app.ID)
		if err != nil {
			writeFailure(w, r, "resolve application roles failed", err)
			return
		}
	} else {
		if !keyCovers(ctx, tenantID) {
			httpx.WriteFailure(w, http.StatusUnauthorized, service.ErrNotAuthorized.Error())
			return
		}
		var err error
		roles, err = h.Roles.RolesForUserAndTenant(ctx, userID, tenantID)
		if err != nil {
			writeFailure(w, r, "resolve tenant roles failed", err)
			return
		}
	}

	if roles == nil {
		roles = []string{}
	}
	httpx.WriteSuccess(w, http.StatusOK, RolesResponse{Roles: roles})
}

// HandleRevokeRefreshTokens godoc
//
//	@Summary		Revoke refresh tokens
//	@Description	Deletes the refresh token a user holds for an application.
//	@Tags			API
//	@Produce		json
//	@Security		APIKeyAuth
//	@Param			X-Tenant-ID		header		string			false	"Tenant the API key is used for"
//	@Param			applicationId	query		string			true	"Application id"
//	@Param			userId			query		string			true	"User id"
//	@Success		200				{object}	httpx.Envelope	"data: {revoked}"
//	@Failure		400				{object}	httpx.Envelope	"success, message"
//	@Failure		401				{object}	httpx.Envelope	"success, message"
//	@Router			/api/v1/refresh-tokens [delete].
func (h *APIHandler) HandleRevokeRefreshTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID := strings.TrimSpace(r.URL.Query().Get("applicationId"))
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))

	if appID == "" || userID == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "applicationId and userId are required")
		return
	}

	app, err := h.application(ctx, appID)
	if err != nil {
		writeFailure(w, r, "load application failed", err)
		return
	}
	if !keyCovers(ctx, app.TenantID) {
		httpx.WriteFailure(w, http.StatusUnauthorized, service.ErrNotAuthorized.Error())
		return
	}

	revoked, err := h.Tokens.RevokeRefreshTokens(ctx, app.ID, userID)
	if err != nil {
		writeFailure(w, r, "revoke refresh tokens failed", err)
		return
	}

	slogx.FromContext(ctx).Info("refresh tokens revoked", "application_id", app.ID, "user_id", userID, "revoked", revoked)
	httpx.WriteSuccess(w, http.StatusOK, RevokeResponse{Revoked: revoked})
}

// HandleInvalidateKeys godoc
//
//	@Summary		Invalidate cached signing keys
//	@Description	Drops the cached key resolution of an application so rotated keys take effect immediately.
//	@Tags			API
//	@Produce		json
//	@Security		APIKeyAuth
//	@Param			X-Tenant-ID		header		string			false	"Tenant the API key is used for"
//	@Param			applicationId	path		string			true	"Application id"
//	@Success		200				{object}	httpx.Envelope	"success"
//	@Failure		400				{object}	httpx.Envelope	"success, message"
//	@Failure		401				{object}	httpx.Envelope	"success, message"
//	@Router			/api/v1/applications/{applicationId}/keys/invalidate [post].
func (h *APIHandler) HandleInvalidateKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := h.application(ctx, r.PathValue("applicationId"))
	if err != nil {
		writeFailure(w, r, "load application failed", err)
		return
	}
	if !keyCovers(ctx, app.TenantID) {
		httpx.WriteFailure(w, http.StatusUnauthorized, service.ErrNotAuthorized.Error())
		return
	}

	if err := h.Resolver.Invalidate(ctx, app.ID); err != nil {
		writeFailure(w, r, "invalidate keys failed", err)
		return
	}

	slogx.FromContext(ctx).Info("signing keys invalidated", "application_id", app.ID)
	httpx.WriteSuccess(w, http.StatusOK, nil)
}

func (h *APIHandler) application(ctx context.Context, id string) (domain.Application, error) {
	app, err := h.Store.Applications().GetApplicationByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Application{}, fmt.Errorf("%w: %s", service.ErrApplicationNotFound, id)
	}
	if err != nil {
		return domain.Application{}, fmt.Errorf("load application: %w", err)
	}
	return app, nil
}
