// Package config loads the storefront's settings from the environment.
//
// SOURCES, in order of precedence:
//  1. real environment variables
//  2. a .env file in the working directory (optional)
//  3. the defaults below
//
// godotenv.Load never overrides a variable that is already set, which is what
// gives real environment variables the upper hand.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvDevelopment selects SQLite; any other APP_ENV selects PostgreSQL.
const EnvDevelopment = "development"

// Config holds every setting the server needs.
type Config struct {
	Env  string
	Port int

	SecretKey  string
	SessionTTL time.Duration

	// DBPath is the SQLite file used in development; PostgresURI is used
	// everywhere else.
	DBPath      string
	PostgresURI string

	UploadDir string

	Redis RedisConfig
	S3    S3Config
	Log   LogConfig
}

type RedisConfig struct {
	Addr     string // empty means "keep revoked sessions in memory"
	Password string
	DB       int
}

type S3Config struct {
	Bucket    string // empty means "store uploads on disk"
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type LogConfig struct {
	Level  slog.Level
	Format string // "text" or "json"
	File   string // optional, logs go to stdout AND this file
}

// Development reports whether the SQLite store should be used.
func (c *Config) Development() bool {
	return c.Env == EnvDevelopment
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}

	cfg := &Config{
		Env:         e.str("APP_ENV", EnvDevelopment),
		Port:        e.int("PORT", 8080),
		SecretKey:   e.str("SECRET_KEY", ""),
		SessionTTL:  e.duration("SESSION_TTL", 24*time.Hour),
		DBPath:      e.str("DB_PATH", "data/storefront.db"),
		PostgresURI: e.str("POSTGRES_URI", ""),
		UploadDir:   e.str("UPLOAD_DIR", "static/uploads"),
		Redis: RedisConfig{
			Addr:     e.str("REDIS_ADDR", ""),
			Password: e.str("REDIS_PASSWORD", ""),
			DB:       e.int("REDIS_DB", 0),
		},
		S3: S3Config{
			Bucket:    e.str("S3_BUCKET", ""),
			Region:    e.str("S3_REGION", "us-east-1"),
			Endpoint:  e.str("S3_ENDPOINT", ""),
			AccessKey: e.str("S3_ACCESS_KEY", ""),
			SecretKey: e.str("S3_SECRET_KEY", ""),
			PublicURL: e.str("S3_PUBLIC_URL", ""),
		},
		Log: LogConfig{
			Level:  e.level("LOG_LEVEL", slog.LevelInfo),
			Format: strings.ToLower(e.str("LOG_FORMAT", "text")),
			File:   e.str("LOG_FILE", ""),
		},
	}

	errs := e.errs
	if len(cfg.SecretKey) < 16 {
		errs = append(errs, errors.New("SECRET_KEY must be set to at least 16 characters"))
	}
	if !cfg.Development() && cfg.PostgresURI == "" {
		errs = append(errs, fmt.Errorf("POSTGRES_URI is required when APP_ENV=%q", cfg.Env))
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", cfg.Port))
	}
	if cfg.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", cfg.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// env reads typed values and collects parse errors, so one run reports every
// bad variable instead of the first.
type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not an integer", key, v))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not a duration (e.g. 24h)", key, v))
		return def
	}
	return d
}

func (e *env) level(key string, def slog.Level) slog.Level {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not a log level", key, v))
		return def
	}
	return l
}
