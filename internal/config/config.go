package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for eveview.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Redis   RedisConfig
	View    ViewConfig
}

type ServerConfig struct {
	Port     int    `envconfig:"EVEVIEW_PORT" default:"8080"`
	Env      string `envconfig:"EVEVIEW_ENV" default:"development"`
	LogLevel string `envconfig:"EVEVIEW_LOG_LEVEL" default:"info"`
}

// BackendConfig describes the results service the client talks to.
type BackendConfig struct {
	BaseURL     string        `envconfig:"EVE_BASE_URL"`
	ResultsPath string        `envconfig:"EVE_RESULTS_PATH" default:"/api/results"`
	UploadPath  string        `envconfig:"EVE_UPLOAD_PATH" default:"/api/upload"`
	Timeout     time.Duration `envconfig:"EVE_TIMEOUT" default:"30s"`
	Token       string        `envconfig:"EVE_TOKEN"`
}

// RedisConfig is optional. An empty URL disables the result cache and
// falls back to in-process rate limiting.
type RedisConfig struct {
	URL       string        `envconfig:"REDIS_URL"`
	ResultTTL time.Duration `envconfig:"REDIS_RESULT_TTL" default:"30s"`
}

type ViewConfig struct {
	APIKeyHash      string        `envconfig:"VIEW_API_KEY_HASH"`
	RateLimit       int           `envconfig:"VIEW_RATE_LIMIT" default:"60"`
	RefreshInterval time.Duration `envconfig:"VIEW_REFRESH_INTERVAL" default:"0s"`
	CORSOrigins     []string      `envconfig:"VIEW_CORS_ORIGINS" default:"http://localhost:5173"`
	LoginURL        string        `envconfig:"VIEW_LOGIN_URL" default:"/login"`
}

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadBackend reads only the results service settings. Defaults apply, and
// the result is not validated so callers can override fields first.
func LoadBackend() (BackendConfig, error) {
	var b BackendConfig
	if err := envconfig.Process("", &b); err != nil {
		return BackendConfig{}, fmt.Errorf("reading environment: %w", err)
	}
	return b, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("EVEVIEW_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if _, ok := validLogLevels[strings.ToLower(c.Server.LogLevel)]; !ok {
		return fmt.Errorf("EVEVIEW_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}
	if c.Redis.ResultTTL < 0 {
		return fmt.Errorf("REDIS_RESULT_TTL must not be negative")
	}

	if c.View.RateLimit <= 0 {
		return fmt.Errorf("VIEW_RATE_LIMIT must be positive, got %d", c.View.RateLimit)
	}
	if c.View.RefreshInterval < 0 {
		return fmt.Errorf("VIEW_REFRESH_INTERVAL must not be negative")
	}
	if c.View.APIKeyHash != "" && !strings.HasPrefix(c.View.APIKeyHash, "$2") {
		return fmt.Errorf("VIEW_API_KEY_HASH must be a bcrypt hash")
	}

	return nil
}

// Validate checks the backend settings on their own; the CLI uses it without
// loading the view server settings.
func (b BackendConfig) Validate() error {
	if b.BaseURL == "" {
		return fmt.Errorf("EVE_BASE_URL is required")
	}
	if !strings.HasPrefix(b.BaseURL, "http://") && !strings.HasPrefix(b.BaseURL, "https://") {
		return fmt.Errorf("EVE_BASE_URL must start with http:// or https://, got %q", b.BaseURL)
	}
	if !strings.HasPrefix(b.ResultsPath, "/") {
		return fmt.Errorf("EVE_RESULTS_PATH must start with /, got %q", b.ResultsPath)
	}
	if !strings.HasPrefix(b.UploadPath, "/") {
		return fmt.Errorf("EVE_UPLOAD_PATH must start with /, got %q", b.UploadPath)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("EVE_TIMEOUT must be positive")
	}
	return nil
}

// SlogLevel returns the configured log level.
func (s ServerConfig) SlogLevel() slog.Level {
	return validLogLevels[strings.ToLower(s.LogLevel)]
}
