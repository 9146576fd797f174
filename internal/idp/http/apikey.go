package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/authsdk"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

type apiKeyCtxKey struct{}

// APIKeyMiddleware admits requests whose Authorization header carries an
// API key allowed to call the endpoint for the tenant in X-Tenant-ID.
// Denials are written as a 401 envelope.
func APIKeyMiddleware(guard *service.APIKeyGuard) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			res, err := guard.Authorize(ctx, service.GuardRequest{
				Authorization: r.Header.Get("Authorization"),
				TenantID:      r.Header.Get(authsdk.TenantHeader),
				Path:          r.URL.Path,
				Method:        r.Method,
			})
			switch {
			case errors.Is(err, service.ErrAuthorizationRequired),
				errors.Is(err, service.ErrNotAuthorized):
				httpx.WriteFailure(w, http.StatusUnauthorized, err.Error())
				return
			case err != nil:
				log.Error("api key check failed", "err", err)
				httpx.WriteFailure(w, http.StatusInternalServerError, "internal server error")
				return
			case !res.Allowed:
				log.Warn("api key denied", "key_id", res.Key.ID, "path", r.URL.Path, "method", r.Method)
				httpx.WriteFailure(w, http.StatusUnauthorized, service.ErrNotAuthorized.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, apiKeyCtxKey{}, res.Key)))
		})
	}
}

// apiKeyFromContext returns the key admitted by APIKeyMiddleware.
func apiKeyFromContext(ctx context.Context) (*domain.AuthenticationKey, bool) {
	k, ok := ctx.Value(apiKeyCtxKey{}).(*domain.AuthenticationKey)
	return k, ok && k != nil
}

// keyCovers reports whether the admitted key may act on a resource owned by
// tenantID. The header check in the guard is not enough on its own: a
// tenant scoped key must also match the tenant the resource belongs to.
func keyCovers(ctx context.Context, tenantID string) bool {
	k, ok := apiKeyFromContext(ctx)
	return ok && k.ScopedTo(tenantID)
}
