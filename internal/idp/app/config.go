package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/httpx"
)

// Supported values for Config.DatabaseDriver and Config.KeyCache.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	KeyCacheMemory = "memory"
	KeyCacheRedis  = "redis"
	KeyCacheNone   = "none"
)

type Config struct {
	Issuer string // issuer claim for tokens (default: http://localhost:8080)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // path to SQLite database file (default: ./idp.db)
	DatabaseURL    string // postgres DSN, required when DatabaseDriver is postgres
	DBMaxOpenConns int    // connection pool size (default: 10)
	DBMaxIdleConns int    // idle connections kept open (default: 2)
	PepperFile     string // path to file containing pepper for password hashing (default: ./pepper)
	MasterKeyPath  string // Optional: master key used to seal key material at rest
	SeedFile       string // Optional: YAML seed applied on start
	CodeTTL        time.Duration
	KeyCache       string // memory, redis or none (default: memory)
	KeyCacheTTL    time.Duration
	RedisURL       string // required when KeyCache is redis
	Env            string // Environment (dev, staging, prod) (default: dev)
	LogLevel       string // Log level (debug, info, warn, error) (default: info)
	LogFormat      string // Log format (json, text) (default: json)
	Port           int    // HTTP server port (default: 8080)
	MetricsEnabled bool   // expose /metrics (default: true)
	ShutdownGrace  time.Duration
	Housekeeping   time.Duration
	RateLimits     httpx.RateLimits
	EnvFile        string // dotenv file that was applied, empty when none
}

// LoadConfig reads the process configuration from the environment. An
// optional dotenv file named by AUTH_ENV_FILE (default .env) is applied
// first; variables already set in the environment win.
func LoadConfig() (Config, error) {
	envFile := getEnvOrDefault("AUTH_ENV_FILE", ".env")
	loaded := ""
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else {
		loaded = envFile
	}

	cfg := Config{
		Issuer:         strings.TrimSuffix(getEnvOrDefault("AUTH_ISSUER", "http://localhost:8080"), "/"),
		DatabaseDriver: strings.ToLower(getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "idp.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),
		DBMaxOpenConns: getEnvIntOrDefault("AUTH_DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns: getEnvIntOrDefault("AUTH_DB_MAX_IDLE_CONNS", 2),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		MasterKeyPath:  os.Getenv("AUTH_MASTER_KEY_PATH"),
		SeedFile:       os.Getenv("AUTH_SEED_FILE"),
		CodeTTL:        getEnvDurationOrDefault("AUTH_CODE_TTL", service.DefaultCodeTTL),
		KeyCache:       strings.ToLower(getEnvOrDefault("AUTH_KEY_CACHE", KeyCacheMemory)),
		KeyCacheTTL:    getEnvDurationOrDefault("AUTH_KEY_CACHE_TTL", service.DefaultResolverTTL),
		RedisURL:       os.Getenv("REDIS_URL"),
		Env:            getEnvOrDefault("ENV", "dev"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "json"),
		Port:           getEnvIntOrDefault("PORT", 8080),
		MetricsEnabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
		ShutdownGrace:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		Housekeeping:   getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		RateLimits:     httpx.RateLimitsFromEnv(),
		EnvFile:        loaded,
	}

	return cfg, cfg.Validate()
}

// Validate rejects combinations the application cannot start with.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			return errors.New("AUTH_DATABASE_FILE is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("AUTH_DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}

	switch c.KeyCache {
	case KeyCacheMemory, KeyCacheNone:
	case KeyCacheRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis key cache")
		}
	default:
		return fmt.Errorf("unsupported key cache %q", c.KeyCache)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
