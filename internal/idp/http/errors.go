// Package http exposes the identity services over HTTP: the OAuth2 and OIDC
// endpoints, the well-known documents, the API-key protected first-party
// API, and the health and metrics endpoints.
package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// oauthError maps a service error onto the RFC 6749 error it is reported
// as. Unknown errors become server_error.
func oauthError(err error) *authsdk.OAuth2Error {
	var e *authsdk.OAuth2Error
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		e = authsdk.ErrInvalidRequest
	case errors.Is(err, service.ErrApplicationNotFound),
		errors.Is(err, service.ErrTenantNotFound):
		return authsdk.ErrInvalidRequest.WithDescription(err.Error())
	case errors.Is(err, service.ErrUnsupportedGrantType):
		e = authsdk.ErrUnsupportedGrantType
	case errors.Is(err, service.ErrUnsupportedResponseType):
		e = authsdk.ErrUnsupportedResponseType
	case errors.Is(err, service.ErrInvalidScope):
		e = authsdk.ErrInvalidScope
	case errors.Is(err, service.ErrInvalidGrant):
		e = authsdk.ErrInvalidGrant
	case errors.Is(err, service.ErrInvalidClient):
		e = authsdk.ErrInvalidClient
	case errors.Is(err, service.ErrUnauthorizedClient):
		e = authsdk.ErrUnauthorizedClient
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrPKCEMismatch):
		e = authsdk.ErrInvalidCredentials
	case errors.Is(err, service.ErrRedirectNotAllowed):
		e = authsdk.NewOAuth2Error(http.StatusUnauthorized, authsdk.ErrorCodeAccessDenied, err.Error())
	default:
		return authsdk.ErrServerError
	}

	if desc := service.Describe(err); desc != "" {
		e = e.WithDescription(desc)
	}
	return e
}

// writeOAuthError writes err in the OAuth2 shape and logs it when it is an
// internal failure.
func writeOAuthError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e := oauthError(err)
	if e.StatusCode >= http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error(msg, "err", err)
	} else {
		slogx.FromContext(r.Context()).Debug(msg, "err", err)
	}
	e.WriteError(w)
}

// writeFailure writes err as a {success:false, message} envelope. Internal
// failures are logged and reported with an opaque message.
func writeFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e := oauthError(err)
	if e.StatusCode >= http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error(msg, "err", err)
		httpx.WriteFailure(w, e.StatusCode, "internal server error")
		return
	}

	slogx.FromContext(r.Context()).Debug(msg, "err", err)
	httpx.WriteFailure(w, e.StatusCode, e.Description)
}
