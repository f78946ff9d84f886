package config

import (
	"fmt"
	"os"
)

// Config carries every externally-provided setting. It is built once at
// startup and passed to the modules that need it; nothing reads the
// environment after Load returns.
type Config struct {
	Port        string
	Environment string // development | production

	DatabaseURL string
	RedisAddr   string // optional; enables the TTL idempotency store
	AMQPURL     string // optional; enables the fulfillment publisher

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayBaseURL       string

	RequestIDSecret string
	AuthJWTSecret   string
	AdminKeyHash    string // bcrypt hash of the admin API key
}

// Load reads configuration from the environment. Missing payment secrets are
// not fatal here; they surface through the health endpoint and fail the
// affected endpoints at request time.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getenv("PORT", "8080"),
		Environment:           getenv("APP_ENV", "development"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		AMQPURL:               os.Getenv("AMQP_URL"),
		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		RazorpayBaseURL:       getenv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		RequestIDSecret:       getenv("REQUEST_ID_SECRET", "default-secret"),
		AuthJWTSecret:         os.Getenv("AUTH_JWT_SECRET"),
		AdminKeyHash:          os.Getenv("ADMIN_KEY_HASH"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// Production reports whether the service runs in production mode. Error
// details are withheld from responses when it does.
func (c *Config) Production() bool { return c.Environment == "production" }

// DependencyFlags reports which external credentials are configured, for the
// health endpoint.
func (c *Config) DependencyFlags() map[string]bool {
	return map[string]bool{
		"razorpay": c.RazorpayKeyID != "" && c.RazorpayKeySecret != "",
		"webhook":  c.RazorpayWebhookSecret != "",
		"database": c.DatabaseURL != "",
		"redis":    c.RedisAddr != "",
		"amqp":     c.AMQPURL != "",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
