// Package service implements the identity flows on top of the store: key
// resolution, credential checks, role resolution, token issuance and the
// API-key guard.
package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Validation and state errors (400).
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrApplicationNotFound     = errors.New("application not found")
	ErrTenantNotFound          = errors.New("tenant not found")

	// Authentication and authorization errors (401).
	ErrInvalidClient         = errors.New("invalid_client")
	ErrUnauthorizedClient    = errors.New("unauthorized_client")
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrPKCEMismatch          = errors.New("pkce verification failed")
	ErrRedirectNotAllowed    = errors.New("redirect_uri is not authorized for this application")
	ErrAuthorizationRequired = errors.New("authorization header required")
	ErrNotAuthorized         = errors.New("You are not authorized")

	// Internal errors (500).
	ErrSigning      = errors.New("token signing failed")
	ErrKeyNotConfig = errors.New("no signing key configured")
)

// invalid wraps one of the sentinels with a field level description.
func invalid(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Describe returns the description attached to err by the service, or the
// empty string when err is a bare sentinel.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	_, desc, ok := strings.Cut(err.Error(), ": ")
	if !ok {
		return ""
	}
	return desc
}
