// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends lists the supported DATA_BACKEND values.
var Backends = []string{"memory", "postgres", "sqlite"}

type Config struct {
	// HTTP server
	Addr   string
	WebDir string

	// Storage
	DataBackend string
	DatabaseURL string
	SQLitePath  string

	// Receipt extraction
	GeminiAPIKey      string
	GeminiModel       string
	GeminiTimeout     time.Duration
	ReceiptRatePerMin int
	ReceiptBurst      int

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string

	// Authentication
	AuthDisabled bool

	// OIDC (optional)
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Statistics
	WindowDays     int
	TrendDropFirst bool

	// Sessions
	SessionSweepInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads a .env file when present, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:   getEnv("ADDR", ":8080"),
		WebDir: getEnv("WEB_DIR", "web"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/fuellog.db"),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout:     getEnvDuration("GEMINI_TIMEOUT", 60*time.Second),
		ReceiptRatePerMin: getEnvInt("RECEIPT_RATE_PER_MIN", 10),
		ReceiptBurst:      getEnvInt("RECEIPT_BURST", 3),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fuellog"),

		AuthDisabled: getEnvBool("AUTH_DISABLED", false),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", ""),

		WindowDays:     getEnvInt("STATS_WINDOW_DAYS", 90),
		TrendDropFirst: getEnvBool("TREND_DROP_FIRST", true),

		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// OIDCEnabled reports whether every OIDC setting is present.
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != "" && c.OIDCClientSecret != "" && c.OIDCRedirectURL != ""
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errs []string

	if c.Addr == "" {
		errs = append(errs, "listen address cannot be empty")
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}
	if c.DataBackend == "postgres" && c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required when using postgres backend")
	}
	if c.DataBackend == "sqlite" && c.SQLitePath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.GeminiAPIKey != "" && c.GeminiModel == "" {
		errs = append(errs, "GEMINI_MODEL cannot be empty when GEMINI_API_KEY is set")
	}
	if c.GeminiTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid gemini timeout %v: must be at least 1 second", c.GeminiTimeout))
	}
	if c.ReceiptRatePerMin < 1 {
		errs = append(errs, fmt.Sprintf("invalid receipt rate %d: must be at least 1 per minute", c.ReceiptRatePerMin))
	}
	if c.ReceiptBurst < 1 {
		errs = append(errs, fmt.Sprintf("invalid receipt burst %d: must be at least 1", c.ReceiptBurst))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	oidcSet := c.OIDCIssuer != "" || c.OIDCClientID != "" || c.OIDCClientSecret != "" || c.OIDCRedirectURL != ""
	if oidcSet && !c.OIDCEnabled() {
		errs = append(errs, "OIDC_ISSUER, OIDC_CLIENT_ID, OIDC_CLIENT_SECRET and OIDC_REDIRECT_URL must be set together")
	}

	if c.WindowDays < 1 || c.WindowDays > 3660 {
		errs = append(errs, fmt.Sprintf("invalid stats window %d: must be between 1 and 3660 days", c.WindowDays))
	}
	if c.SessionSweepInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session sweep interval %v: must be at least 1 minute", c.SessionSweepInterval))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
