// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database settings. postgres:// DSNs select the pgx backend; anything
	// else is treated as a SQLite file path.
	DatabaseURL string

	// API settings.
	APIKey string // Shared secret for the JSON API; empty = read-only API.

	// Admin UI settings.
	AdminUser         string
	AdminPasswordHash string // Argon2id hash; see scripts/hashpw.
	SessionTTL        time.Duration

	// Telegram worker settings.
	TelegramEnabled     bool
	TelegramToken       string
	TelegramAPIURL      string // Override for tests; default is the public Bot API.
	TelegramPollTimeout time.Duration

	// Operational settings.
	StopTimeout time.Duration // Bound on worker shutdown during process exit.
	LogLevel    string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	var cfg Config
	var err error

	load := func(dst *int, key string, def int) {
		if err == nil {
			*dst, err = envInt(key, def)
		}
	}
	loadDur := func(dst *time.Duration, key string, def time.Duration) {
		if err == nil {
			*dst, err = envDuration(key, def)
		}
	}
	loadBool := func(dst *bool, key string, def bool) {
		if err == nil {
			*dst, err = envBool(key, def)
		}
	}

	load(&cfg.Port, "BINDEX_PORT", 8080)
	loadDur(&cfg.ReadTimeout, "BINDEX_READ_TIMEOUT", 30*time.Second)
	loadDur(&cfg.WriteTimeout, "BINDEX_WRITE_TIMEOUT", 30*time.Second)
	cfg.DatabaseURL = envStr("BINDEX_DATABASE_URL", "bindex.db")
	cfg.APIKey = envStr("BINDEX_API_KEY", "")
	cfg.AdminUser = envStr("BINDEX_ADMIN_USER", "")
	cfg.AdminPasswordHash = envStr("BINDEX_ADMIN_PASSWORD_HASH", "")
	loadDur(&cfg.SessionTTL, "BINDEX_SESSION_TTL", 12*time.Hour)
	loadBool(&cfg.TelegramEnabled, "BINDEX_TELEGRAM_ENABLED", false)
	cfg.TelegramToken = envStr("BINDEX_TELEGRAM_TOKEN", "")
	cfg.TelegramAPIURL = envStr("BINDEX_TELEGRAM_API_URL", "https://api.telegram.org")
	loadDur(&cfg.TelegramPollTimeout, "BINDEX_TELEGRAM_POLL_TIMEOUT", 30*time.Second)
	loadDur(&cfg.StopTimeout, "BINDEX_STOP_TIMEOUT", 5*time.Second)
	cfg.LogLevel = envStr("BINDEX_LOG_LEVEL", "info")
	cfg.OTELEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	loadBool(&cfg.OTELInsecure, "OTEL_EXPORTER_OTLP_INSECURE", false)
	cfg.ServiceName = envStr("OTEL_SERVICE_NAME", "bindex")

	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: BINDEX_DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: BINDEX_PORT must be in 1..65535")
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("config: BINDEX_STOP_TIMEOUT must be positive")
	}
	if c.TelegramPollTimeout <= 0 {
		return fmt.Errorf("config: BINDEX_TELEGRAM_POLL_TIMEOUT must be positive")
	}
	// The admin UI is optional, but a half-set credential pair is rejected.
	if (c.AdminUser == "") != (c.AdminPasswordHash == "") {
		return fmt.Errorf("config: BINDEX_ADMIN_USER and BINDEX_ADMIN_PASSWORD_HASH must be set together")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
