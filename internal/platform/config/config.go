// Package config loads and validates application configuration from the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	GitLabBaseURL      string `env:"GITLAB_BASE_URL" default:"https://gitlab.com"`
	GitLabClientID     string `env:"GITLAB_CLIENT_ID"`
	GitLabClientSecret string `env:"GITLAB_CLIENT_SECRET"`
	GitLabRedirectURI  string `env:"GITLAB_REDIRECT_URI"`
	OAuthScopes        string `env:"OAUTH_SCOPES" default:"openid profile email read_user read_api"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionName   string        `env:"SESSION_NAME" default:"labdeck-session"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"24h"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"10"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"20"`
}

// Production reports whether the app runs in production mode. Error
// responses hide internals and session cookies turn on the Secure flag.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
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

func validate(cfg *Config) error {
	required := map[string]string{
		"GITLAB_CLIENT_ID":     cfg.GitLabClientID,
		"GITLAB_CLIENT_SECRET": cfg.GitLabClientSecret,
		"GITLAB_REDIRECT_URI":  cfg.GitLabRedirectURI,
		"SESSION_SECRET":       cfg.SessionSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if _, err := url.ParseRequestURI(cfg.GitLabBaseURL); err != nil {
		return fmt.Errorf("GITLAB_BASE_URL must be a valid URL: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.GitLabRedirectURI); err != nil {
		return fmt.Errorf("GITLAB_REDIRECT_URI must be a valid URL: %w", err)
	}

	if len(cfg.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters, got %d", len(cfg.SessionSecret))
	}

	return nil
}
