package app

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/idp/internal/idp/cache"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/postgres"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqldb"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
)

// OpenStore connects to the configured database. Migrations are not applied.
func OpenStore(cfg Config) (*sqldb.Store, error) {
	pool := sqldb.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite:
		return sqlite.NewStore(cfg.DatabaseFile, pool)
	case DriverPostgres:
		return postgres.NewStore(cfg.DatabaseURL, pool)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// OpenMigratedStore connects and brings the schema up to date.
func OpenMigratedStore(cfg Config) (*sqldb.Store, error) {
	s, err := OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := s.ApplyMigrations(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return s, nil
}

// OpenCache builds the resolver cache. It returns nil for KeyCacheNone.
func OpenCache(ctx context.Context, cfg Config) (cache.Cache, error) {
	switch cfg.KeyCache {
	case KeyCacheNone:
		return nil, nil
	case KeyCacheMemory:
		return cache.NewMemory(0, cfg.KeyCacheTTL), nil
	case KeyCacheRedis:
		r, err := cache.NewRedis(ctx, cfg.RedisURL, cache.DefaultKeyPrefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported key cache %q", cfg.KeyCache)
	}
}
