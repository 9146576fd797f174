package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/idp/internal/idp/cache"
	httpapi "github.com/aussiebroadwan/idp/internal/idp/http"
	"github.com/aussiebroadwan/idp/internal/idp/metrics"
	"github.com/aussiebroadwan/idp/internal/idp/seed"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqldb"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application owns the process-wide dependencies of the identity service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      *sqldb.Store
	cache   cache.Cache
	metrics *metrics.Metrics
	hasher  *cryptox.Hasher
	sealer  *cryptox.Sealer

	resolver            *service.KeyResolver
	signer              *service.TokenSigner
	roles               *service.RoleResolver
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	jwksService         *service.JWKSService
	guard               *service.APIKeyGuard
	housekeepingService *service.HousekeepingService

	router *httpapi.Router
	server *http.Server
}

// New builds the application. The database is opened and migrated, the
// optional seed file applied and the HTTP server prepared but not started.
func New(ctx context.Context, cfg Config) (*Application, error) {
	logger := slogx.New(slogx.Config{
		Service: "idp",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	return NewWithLogger(ctx, cfg, logger)
}

// NewWithLogger is New with a caller supplied logger.
func NewWithLogger(ctx context.Context, cfg Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &Application{cfg: cfg, logger: logger}
	if cfg.EnvFile != "" {
		logger.Info("environment file applied", "path", cfg.EnvFile)
	}

	if err := app.initCrypto(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.applySeed(ctx); err != nil {
		app.closeBackends()
		return nil, err
	}

	app.initServices()
	app.initHTTP()
	return app, nil
}

// Handler exposes the HTTP handler, mostly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run listens on the configured port and serves until ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.server.Addr, err)
	}
	return app.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Backends are closed before Serve returns.
func (app *Application) Serve(ctx context.Context, ln net.Listener) error {
	app.housekeepingService.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info("identity service listening",
			"addr", ln.Addr().String(),
			"issuer", app.cfg.Issuer,
			"driver", app.db.Driver(),
		)
		if err := app.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.shutdown()
	})

	return g.Wait()
}

// shutdown drains the HTTP server and releases every backend.
func (app *Application) shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGrace)
	defer cancel()

	var errs []error
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
		errs = append(errs, err)
	}

	app.housekeepingService.Stop()
	if err := app.closeBackends(); err != nil {
		errs = append(errs, err)
	}

	app.logger.Info("identity service stopped")
	return errors.Join(errs...)
}

func (app *Application) closeBackends() error {
	var errs []error
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("error closing cache", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	sealer, err := cryptox.LoadSealer(app.cfg.MasterKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load master key: %w", err)
	}
	app.sealer = sealer
	if sealer == nil {
		app.logger.Warn("no master key configured, key material is stored unsealed")
	}
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase() error {
	db, err := OpenMigratedStore(app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", db.Driver())
	return nil
}

func (app *Application) initCache(ctx context.Context) error {
	c, err := OpenCache(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize key cache: %w", err)
	}
	app.cache = c
	app.logger.Info("key cache ready", "kind", app.cfg.KeyCache, "ttl", app.cfg.KeyCacheTTL)
	return nil
}

func (app *Application) applySeed(ctx context.Context) error {
	if app.cfg.SeedFile == "" {
		return nil
	}
	doc, err := seed.LoadFile(app.cfg.SeedFile)
	if err != nil {
		return err
	}

	seeder := &seed.Seeder{Store: app.db, Hasher: app.hasher, Sealer: app.sealer}
	sum, err := seeder.Apply(slogx.WithContext(ctx, app.logger), doc)
	if err != nil {
		return fmt.Errorf("failed to apply seed %s: %w", app.cfg.SeedFile, err)
	}
	app.logger.Info("seed applied",
		"file", app.cfg.SeedFile,
		"tenants", sum.Tenants,
		"applications", sum.Applications,
		"users", sum.Users,
		"keys", sum.Keys,
		"keys_generated", sum.KeysGenerated,
	)
	return nil
}

// initServices wires the business logic services
func (app *Application) initServices() {
	if app.cfg.MetricsEnabled {
		app.metrics = metrics.New()
	}

	app.resolver = &service.KeyResolver{
		Store:   app.db,
		Sealer:  app.sealer,
		Cache:   app.cache,
		TTL:     app.cfg.KeyCacheTTL,
		Metrics: app.metrics,
	}
	app.signer = &service.TokenSigner{
		Resolver: app.resolver,
		Store:    app.db,
		Issuer:   app.cfg.Issuer,
	}
	app.roles = &service.RoleResolver{Store: app.db}

	app.authorizeService = &service.AuthorizeService{
		Store:   app.db,
		Hasher:  app.hasher,
		CodeTTL: app.cfg.CodeTTL,
	}
	app.tokenService = &service.TokenService{
		Store:    app.db,
		Resolver: app.resolver,
		Signer:   app.signer,
		Roles:    app.roles,
		Hasher:   app.hasher,
		Metrics:  app.metrics,
	}
	app.jwksService = &service.JWKSService{Store: app.db, Sealer: app.sealer}
	app.guard = &service.APIKeyGuard{Store: app.db, Metrics: app.metrics}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.Housekeeping,
	)
}

// initHTTP builds the router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Issuer:       app.cfg.Issuer,
		BuildVersion: BuildVersion,
		RateLimits:   app.cfg.RateLimits,
		Cache:        app.cache,
		Metrics:      app.metrics,
	}, app.db, app.logger)

	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.JWKSService = app.jwksService
	router.Signer = app.signer
	router.Resolver = app.resolver
	router.Roles = app.roles
	router.Guard = app.guard
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
