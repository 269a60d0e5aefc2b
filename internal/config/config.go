// Package config provides centralized configuration for the registry.
// Settings come from environment variables with sensible defaults and are
// validated on startup to fail fast on misconfiguration. A .env file is
// loaded first when present, so secrets can live in .env locally and in real
// environment variables in deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	SES      SESConfig
	Sweep    SweepConfig
	Auth     AuthConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ImportConfig bounds the certificate import pipeline.
type ImportConfig struct {
	// MaxFileSize is the upload byte cap (default 5 MiB).
	MaxFileSize int64
	// MaxRows is the decoded row cap (default 1000).
	MaxRows int
	// DecodeTimeout bounds the spreadsheet/CSV decode step (default 30s).
	DecodeTimeout time.Duration
	// ClearPolicy is what a fresh import removes first: "none", "imported"
	// (rows with a thumbprint) or "all".
	ClearPolicy string
	// DefaultProfile is used when the request does not pick one:
	// "manual" or "automated".
	DefaultProfile string
}

// SESConfig holds AWS SES settings for expiry notifications. With Enabled
// false the sweep logs instead of sending.
type SESConfig struct {
	Enabled   bool
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

// SweepConfig holds the notification window.
type SweepConfig struct {
	// WindowDays is how many days before expiry a certificate becomes
	// eligible for notification (default 30).
	WindowDays int
}

// AuthConfig holds session settings.
type AuthConfig struct {
	SessionTTL time.Duration
	CookieName string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Load reads configuration from the environment (after loading .env if
// present), applies defaults and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            envString("SERVER_HOST", "0.0.0.0"),
			Port:            envInt("SERVER_PORT", 8080),
			ReadTimeout:     envDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    envDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     envDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: envDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  envDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:             envString("DATABASE_URL", ""),
			MaxConns:        envInt("DB_MAX_CONNS", 10),
			MinConns:        envInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: envDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: envDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Import: ImportConfig{
			MaxFileSize:    envInt64("IMPORT_MAX_FILE_SIZE", 5<<20),
			MaxRows:        envInt("IMPORT_MAX_ROWS", 1000),
			DecodeTimeout:  envDuration("IMPORT_DECODE_TIMEOUT", 30*time.Second),
			ClearPolicy:    envString("IMPORT_CLEAR_POLICY", "imported"),
			DefaultProfile: envString("IMPORT_DEFAULT_PROFILE", "manual"),
		},
		SES: SESConfig{
			Enabled:   envBool("SES_ENABLED", false),
			Region:    envString("AWS_SES_REGION", "eu-central-1"),
			AccessKey: envString("AWS_SES_ACCESS_KEY", ""),
			SecretKey: envString("AWS_SES_SECRET_KEY", ""),
			From:      envString("SES_FROM_ADDRESS", ""),
		},
		Sweep: SweepConfig{
			WindowDays: envInt("SWEEP_WINDOW_DAYS", 30),
		},
		Auth: AuthConfig{
			SessionTTL: envDuration("AUTH_SESSION_TTL", 24*time.Hour),
			CookieName: envString("AUTH_COOKIE_NAME", "certreg_session"),
		},
		Logging: LoggingConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and reports all failures at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxRows <= 0 {
		errs = append(errs, "IMPORT_MAX_ROWS must be positive")
	}
	if c.Import.DecodeTimeout <= 0 {
		errs = append(errs, "IMPORT_DECODE_TIMEOUT must be positive")
	}
	switch c.Import.ClearPolicy {
	case "none", "imported", "all":
	default:
		errs = append(errs, fmt.Sprintf("IMPORT_CLEAR_POLICY (%q) must be one of: none, imported, all", c.Import.ClearPolicy))
	}
	switch strings.ToLower(c.Import.DefaultProfile) {
	case "manual", "automated":
	default:
		errs = append(errs, fmt.Sprintf("IMPORT_DEFAULT_PROFILE (%q) must be manual or automated", c.Import.DefaultProfile))
	}
	if c.SES.Enabled && c.SES.From == "" {
		errs = append(errs, "SES_FROM_ADDRESS is required when SES_ENABLED is true")
	}
	if c.Sweep.WindowDays <= 0 {
		errs = append(errs, "SWEEP_WINDOW_DAYS must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, "AUTH_SESSION_TTL must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be text or json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
