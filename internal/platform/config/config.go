package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minSessionSecretLength = 32

type Config struct {
	AppEnv        string        `env:"APP_ENV" default:"development"`
	AppURL        string        `env:"APP_URL" default:"http://localhost:8080"`
	Port          string        `env:"PORT" default:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	RedisURL      string        `env:"REDIS_URL"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
	LogLevel      string        `env:"LOG_LEVEL" default:"info"`
	LogFormat     string        `env:"LOG_FORMAT" default:"text"`

	AIGatewayURL     string        `env:"AI_GATEWAY_URL" default:"https://ai.gateway.lovable.dev/v1"`
	AIGatewayAPIKey  string        `env:"AI_GATEWAY_API_KEY"`
	AIGatewayModel   string        `env:"AI_GATEWAY_MODEL" default:"google/gemini-2.5-flash"`
	AIGatewayTimeout time.Duration `env:"AI_GATEWAY_TIMEOUT" default:"8s"`

	AdminSignupCode string `env:"ADMIN_SIGNUP_CODE"`

	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" default:"10s"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"2"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether cookies and headers should assume HTTPS.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RemoteClassifierEnabled reports whether an AI gateway key is configured.
func (c *Config) RemoteClassifierEnabled() bool {
	return c.AIGatewayAPIKey != ""
}

func validate(cfg *Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"SESSION_SECRET", cfg.SessionSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if len(cfg.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLength)
	}

	if cfg.IsProduction() {
		if err := validateProductionSSL(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	if u, err := url.Parse(cfg.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_URL must be an absolute URL, got %q", cfg.AppURL)
	}

	if cfg.RemoteClassifierEnabled() {
		if _, err := url.ParseRequestURI(cfg.AIGatewayURL); err != nil {
			return fmt.Errorf("AI_GATEWAY_URL is invalid: %w", err)
		}
		if cfg.AIGatewayTimeout <= 0 {
			return errors.New("AI_GATEWAY_TIMEOUT must be positive")
		}
	}

	if cfg.StatsCacheTTL <= 0 {
		return errors.New("STATS_CACHE_TTL must be positive")
	}

	if cfg.RateLimitPerSecond <= 0 || cfg.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}

	return nil
}

func validateProductionSSL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is invalid: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
