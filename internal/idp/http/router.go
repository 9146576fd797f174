package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/cache"
	"github.com/aussiebroadwan/idp/internal/idp/metrics"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"

	_ "github.com/aussiebroadwan/idp/api/idp" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	issuer       string
	buildVersion string
	startTime    time.Time
	limits       httpx.RateLimits
	logger       *slog.Logger

	store   store.Store
	cache   cache.Cache
	metrics *metrics.Metrics

	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
	JWKSService      *service.JWKSService
	Signer           *service.TokenSigner
	Resolver         *service.KeyResolver
	Roles            *service.RoleResolver
	Guard            *service.APIKeyGuard
}

// RouterConfig carries the values the router needs besides the services.
type RouterConfig struct {
	Issuer       string
	BuildVersion string
	RateLimits   httpx.RateLimits

	// Cache is pinged by /readyz when set.
	Cache cache.Cache

	// Metrics enables /metrics and request duration recording when set.
	Metrics *metrics.Metrics
}

func NewRouter(cfg RouterConfig, st store.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slogx.Discard()
	}
	limits := cfg.RateLimits
	if limits == (httpx.RateLimits{}) {
		limits = httpx.DefaultRateLimits
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		issuer:       cfg.Issuer,
		buildVersion: cfg.BuildVersion,
		startTime:    time.Now(),
		limits:       limits,
		logger:       logger,
		store:        st,
		cache:        cfg.Cache,
		metrics:      cfg.Metrics,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyRoutes registers every endpoint. Services must be assigned first.
func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerWellKnown()
	r.registerAPI()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP godoc
//
//	@title						Identity Provider API
//	@version					1.0
//	@description				Multi-tenant OAuth2 / OpenID Connect identity service.
//	@description				Issues and verifies per-application tokens, resolves roles and guards first-party endpoints with API keys.
//
//	@contact.name				Aussie Broadwan
//	@contact.url				https://github.com/aussiebroadwan
//
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//	@schemes					http https
//
//	@securityDefinitions.apikey	APIKeyAuth
//	@in							header
//	@name						Authorization
//	@description				API key secret, optionally prefixed with "Bearer ".
//
//	@securityDefinitions.basic	ClientBasicAuth
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the access token.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Metrics wraps the mux directly so the matched pattern is visible.
	httpx.Chain(r.metrics.Middleware(r.Mux), r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	authorize := &AuthorizeHandler{AuthorizeService: r.AuthorizeService}

	// Prompt is read only; login submits credentials so it is keyed by the
	// login id as well as the address.
	r.Mux.Handle("GET /oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorize.HandleGet),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("POST /oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorize.HandlePost),
			httpx.RateLimitByIPAndFormField(r.limits.Strict, "loginId"),
		),
	)

	r.Mux.Handle("POST /oauth2/token",
		httpx.Chain(&TokenHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	r.Mux.Handle("POST /oauth2/introspect",
		httpx.Chain(&IntrospectHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	r.Mux.Handle("POST /oauth2/logout",
		httpx.Chain(&LogoutHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	userinfo := httpx.Chain(&UserInfoHandler{TokenService: r.TokenService},
		httpx.RateLimitByIP(r.limits.Lenient),
		httpx.AuthnMiddleware(r.Signer),
	)
	r.Mux.Handle("GET /oauth2/userinfo", userinfo)
	r.Mux.Handle("POST /oauth2/userinfo", userinfo)
}

func (r *Router) registerWellKnown() {
	jwks := &JWKSHandler{JWKSService: r.JWKSService}

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(http.HandlerFunc(jwks.HandleGlobal),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
	r.Mux.Handle("GET /tenants/{tenantId}/.well-known/jwks.json",
		httpx.Chain(http.HandlerFunc(jwks.HandleTenant),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
	r.Mux.Handle("GET /.well-known/openid-configuration",
		httpx.Chain(DiscoveryHandler(r.issuer),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
}

func (r *Router) registerAPI() {
	h := &APIHandler{
		Store:    r.store,
		Tokens:   r.TokenService,
		Resolver: r.Resolver,
		Roles:    r.Roles,
	}
	guarded := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.RateLimitByIP(r.limits.Lenient),
			APIKeyMiddleware(r.Guard),
		)
	}

	r.Mux.Handle("GET /api/v1/users/{userId}/roles", guarded(h.HandleUserRoles))
	r.Mux.Handle("DELETE /api/v1/refresh-tokens", guarded(h.HandleRevokeRefreshTokens))
	r.Mux.Handle("POST /api/v1/applications/{applicationId}/keys/invalidate", guarded(h.HandleInvalidateKeys))
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)

	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
