package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the process configuration shared by the api, worker and storefront binaries.
type Config struct {
	Env      string
	Port     string
	RunLocal bool

	// payment gateway
	GatewayKeyID     string
	GatewayKeySecret string

	// outbound email; an empty sender means email delivery is not configured
	EmailFrom string

	// APIBaseURL is where the storefront reaches the order intake API.
	APIBaseURL string

	OrdersTable      string
	IdempotencyTable string
	NotifyQueueURL   string
	MetricsNamespace string
}

// DefaultAPIBaseURL is used when API_BASE_URL is unset (same-origin local API).
const DefaultAPIBaseURL = "http://localhost:8080"

// LoadEnv reads a .env file when one exists. A missing file is not an error.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// GetEnv returns the value of key or fallback when unset.
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		Env:              GetEnv("APP_ENV", "production"),
		Port:             GetEnv("PORT", "8080"),
		RunLocal:         strings.EqualFold(os.Getenv("RUN_LOCAL"), "true"),
		GatewayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		EmailFrom:        os.Getenv("EMAIL_FROM"),
		APIBaseURL:       strings.TrimRight(GetEnv("API_BASE_URL", DefaultAPIBaseURL), "/"),
		OrdersTable:      os.Getenv("ORDERS_TABLE"),
		IdempotencyTable: os.Getenv("IDEMPOTENCY_TABLE"),
		NotifyQueueURL:   os.Getenv("NOTIFY_QUEUE_URL"),
		MetricsNamespace: os.Getenv("METRICS_NAMESPACE"),
	}
}

// GatewayConfigured reports whether both gateway credentials are present.
func (c *Config) GatewayConfigured() bool {
	return c.GatewayKeyID != "" && c.GatewayKeySecret != ""
}
