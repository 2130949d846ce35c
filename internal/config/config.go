// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Addr string

	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string
	StoreTimeout  time.Duration

	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool
	BcryptCost   int
	AdminCode    string
	CORSOrigin   string

	TrustForwardAuth bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	AMQPURL   string
	AMQPQueue string

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	TokenSweepSchedule string
}

// OIDCEnabled reports whether single sign-on is configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// Load reads .env (when present) and the environment. Variables already set
// in the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := Config{
		Addr:               get("ADDR", ":8080"),
		StoreDriver:        strings.ToLower(get("STORE_DRIVER", DriverMemory)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDatabase:      get("MONGO_DATABASE", "vitalstats"),
		SQLitePath:         get("SQLITE_PATH", "vitalstats.db"),
		StoreTimeout:       duration("STORE_TIMEOUT", 5*time.Second, &errs),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		SessionTTL:         duration("SESSION_TTL", time.Hour, &errs),
		CookieSecure:       boolean("COOKIE_SECURE", false, &errs),
		BcryptCost:         integer("BCRYPT_COST", 10, &errs),
		AdminCode:          os.Getenv("ADMIN_CODE"),
		CORSOrigin:         get("CORS_ORIGIN", "http://localhost:5173"),
		TrustForwardAuth:   boolean("TRUST_FORWARD_AUTH", false, &errs),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            integer("REDIS_DB", 0, &errs),
		CacheTTL:           duration("CACHE_TTL", 5*time.Minute, &errs),
		AMQPURL:            os.Getenv("AMQP_URL"),
		AMQPQueue:          get("AMQP_QUEUE", "healthstats.events"),
		OIDCIssuer:         os.Getenv("OIDC_ISSUER"),
		OIDCClientID:       os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret:   os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:    os.Getenv("OIDC_REDIRECT_URL"),
		TokenSweepSchedule: get("TOKEN_SWEEP_SCHEDULE", "@hourly"),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of memory, postgres, mongo, sqlite", cfg.StoreDriver))
	}
	if cfg.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	return cfg, errors.Join(errs...)
}

func get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func integer(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func boolean(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}
