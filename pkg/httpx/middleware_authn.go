package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// AccessTokenVerifier verifies a raw bearer access token.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*jwtx.Claims, error)
}

// AuthnMiddleware requires a valid bearer access token and stores its claims
// in the request context.
func AuthnMiddleware(v AccessTokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authz := r.Header.Get("Authorization")
			if scheme, _, _ := strings.Cut(authz, " "); !strings.EqualFold(scheme, "Bearer") {
				writeBearerError(w, "invalid_request", "missing bearer token")
				return
			}

			claims, err := v.VerifyAccessToken(ctx, BearerToken(r))
			if err != nil {
				slogx.FromContext(ctx).Debug("bearer token rejected", "err", err)
				writeBearerError(w, "invalid_token", "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

// RequireScope rejects requests whose token lacks scope. It must run after
// AuthnMiddleware.
func RequireScope(scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !claims.HasScope(scope) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+scope+`"`)
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "insufficient_scope",
					"error_description": "token is missing scope " + scope,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeBearerError follows RFC 6750 section 3.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
