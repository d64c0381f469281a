// Package config reads runtime settings from the environment, after an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// Config is everything the binaries need at startup.
type Config struct {
	Port               string
	CORSAllowedOrigins []string

	DBDSNPrimary  string
	DBDSNReadOnly string

	JWTSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceIDs      map[models.PlanType]string
	FrontendURL         string

	GeminiAPIKey string
	GeminiModel  string

	LogLevel  string
	LogFormat string

	MaxDBOpenConns int
}

// BillingEnabled reports whether the Stripe settings are complete enough to serve checkouts.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != "" && c.FrontendURL != ""
}

// AIEnabled reports whether the chat assistant can be started.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

var ErrMissingRequired = errors.New("missing required environment variable")

// Load reads .env (if present) and the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                getenv("PORT", "8080"),
		CORSAllowedOrigins:  splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		DBDSNPrimary:        os.Getenv("DB_DSN_PRIMARY"),
		DBDSNReadOnly:       os.Getenv("DB_DSN_READONLY"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceIDs: map[models.PlanType]string{
			models.PlanPro:     os.Getenv("STRIPE_PRICE_ID_PRO"),
			models.PlanPremium: os.Getenv("STRIPE_PRICE_ID_PREMIUM"),
		},
		FrontendURL:  strings.TrimRight(os.Getenv("FRONTEND_URL"), "/"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-1.5-flash"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "json"),
	}

	var missing []string
	if cfg.DBDSNPrimary == "" {
		missing = append(missing, "DB_DSN_PRIMARY")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: %w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	conns, err := strconv.Atoi(getenv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil || conns <= 0 {
		return nil, fmt.Errorf("config: DB_MAX_OPEN_CONNS must be a positive integer, got %q", os.Getenv("DB_MAX_OPEN_CONNS"))
	}
	cfg.MaxDBOpenConns = conns

	switch cfg.LogFormat {
	case "json", "console":
	default:
		return nil, fmt.Errorf("config: LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
