package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded once from the environment.
type Config struct {
	AppEnv               string
	Port                 string
	StripePublishableKey string
	StripeSecretKey      string
	StripeWebhookSecret  string
	RedisURL             string
	CORSAllowedOrigins   []string
	UpstreamTimeout      time.Duration
	IdempotencyTTL       time.Duration
	WebhookReplayTTL     time.Duration
	MaxWebhookBody       int64
	MaxRequestBody       int64
	RateLimitWindow      time.Duration
	RateLimitMax         int
}

// Load reads configuration from environment variables and optional .env files.
// Stripe credentials are validated here so a misconfigured process refuses to
// start instead of failing on the first request.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:               valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                 valueOrDefault(k.String("PORT"), "8080"),
		StripePublishableKey: strings.TrimSpace(k.String("STRIPE_PUBLISHABLE_KEY")),
		StripeSecretKey:      strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
		StripeWebhookSecret:  strings.TrimSpace(k.String("STRIPE_WEBHOOK_SECRET")),
		RedisURL:             strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins:   splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		UpstreamTimeout:      parseDuration(k.String("UPSTREAM_TIMEOUT"), "10s"),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		WebhookReplayTTL:     parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "24h"),
		MaxWebhookBody:       parseBytes(k.String("MAX_WEBHOOK_BODY"), 64<<10),
		MaxRequestBody:       parseBytes(k.String("MAX_REQUEST_BODY"), 16<<10),
		RateLimitWindow:      parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:         parseInt(k.String("RATE_LIMIT_MAX"), 60),
	}

	if len(cfg.CORSAllowedOrigins) == 0 {
		// Expo / local web dev defaults. Never a wildcard: the endpoints run
		// with credentials enabled.
		cfg.CORSAllowedOrigins = []string{"http://localhost:3000", "http://localhost:19006"}
	}

	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	if !strings.HasPrefix(cfg.StripeSecretKey, "sk_") && !strings.HasPrefix(cfg.StripeSecretKey, "rk_") {
		return nil, errors.New("STRIPE_SECRET_KEY is malformed: expected an sk_ or rk_ key")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(trimmed, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBytes(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var n int64
	if _, err := fmt.Sscanf(trimmed, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

// LoadForTests overrides environment variables for the duration of a Load call.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
