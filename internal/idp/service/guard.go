package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/metrics"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
)

// GuardRequest is one call to an API-key protected endpoint.
type GuardRequest struct {
	Authorization string // raw secret or "Bearer <secret>"
	TenantID      string
	Path          string
	Method        string
}

type GuardResult struct {
	Allowed bool
	Key     *domain.AuthenticationKey
}

// APIKeyGuard decides whether an API key may call an endpoint. It never
// writes to the store.
type APIKeyGuard struct {
	Store   store.Store
	Metrics *metrics.Metrics
}

// Authorize looks the key up by the fingerprint of its secret and checks the
// endpoint permissions and tenant scope. A missing header returns
// ErrAuthorizationRequired and an unknown key ErrNotAuthorized; a known key
// that may not call the endpoint returns Allowed == false with a nil error.
func (g *APIKeyGuard) Authorize(ctx context.Context, req GuardRequest) (GuardResult, error) {
	secret := bearerValue(req.Authorization)
	if secret == "" {
		return GuardResult{}, ErrAuthorizationRequired
	}

	key, err := g.Store.APIKeys().GetAPIKeyByHash(ctx, cryptox.FingerprintToken(secret))
	if errors.Is(err, store.ErrNotFound) {
		g.Metrics.GuardDecision(false)
		return GuardResult{}, ErrNotAuthorized
	}
	if err != nil {
		return GuardResult{}, fmt.Errorf("lookup api key: %w", err)
	}

	allowed := key.Permissions.Allows(req.Path, req.Method) && key.ScopedTo(req.TenantID)
	g.Metrics.GuardDecision(allowed)
	return GuardResult{Allowed: allowed, Key: &key}, nil
}

// bearerValue accepts both "Bearer <secret>" and a bare secret.
func bearerValue(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
