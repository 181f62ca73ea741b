package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	FallbackNone = "none"
	FallbackMock = "mock"
)

type Config struct {
	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" default:"sqlite://storefront.db"`

	// Kafka
	KafkaBrokers     string `envconfig:"KAFKA_BROKERS" default:""`
	OrderEventsTopic string `envconfig:"ORDER_EVENTS_TOPIC" default:"order-events"`
	WorkerGroupID    string `envconfig:"WORKER_GROUP_ID" default:"storefront-worker"`

	// API Configuration
	APIPort       string `envconfig:"API_PORT" default:"8080"`
	APIHost       string `envconfig:"API_HOST" default:"0.0.0.0"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	CORSOrigins   string `envconfig:"CORS_ORIGINS" default:"*"`
	CookieSecure  bool   `envconfig:"COOKIE_SECURE" default:"false"`

	// Admin
	AdminToken string `envconfig:"ADMIN_TOKEN" default:""`

	// Pricing
	Currency              string          `envconfig:"CURRENCY" default:"USD"`
	TaxRate               decimal.Decimal `envconfig:"TAX_RATE" default:"0.10"`
	ShippingFlatFee       decimal.Decimal `envconfig:"SHIPPING_FLAT_FEE" default:"5.00"`
	FreeShippingThreshold decimal.Decimal `envconfig:"FREE_SHIPPING_THRESHOLD" default:"100.00"`

	// Payments
	PaymentsFallback    string        `envconfig:"PAYMENTS_FALLBACK" default:"mock"`
	ProviderTimeout     time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
	StripeSecretKey     string        `envconfig:"STRIPE_SECRET_KEY" default:""`
	StripeWebhookSecret string        `envconfig:"STRIPE_WEBHOOK_SECRET" default:""`
	PayPalClientID      string        `envconfig:"PAYPAL_CLIENT_ID" default:""`
	PayPalClientSecret  string        `envconfig:"PAYPAL_CLIENT_SECRET" default:""`
	PayPalBaseURL       string        `envconfig:"PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`

	// Environment
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations that are unsafe to run with.
func (c *Config) Validate() error {
	switch c.PaymentsFallback {
	case FallbackNone, FallbackMock:
	default:
		return fmt.Errorf("PAYMENTS_FALLBACK must be %q or %q, got %q", FallbackNone, FallbackMock, c.PaymentsFallback)
	}
	if c.IsProduction() && c.PaymentsFallback == FallbackMock {
		return fmt.Errorf("mock payments cannot be enabled in production")
	}
	if c.TaxRate.IsNegative() || c.ShippingFlatFee.IsNegative() {
		return fmt.Errorf("tax rate and shipping fee must not be negative")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) MockPayments() bool {
	return c.PaymentsFallback == FallbackMock
}

func (c *Config) Brokers() []string {
	if strings.TrimSpace(c.KafkaBrokers) == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Config) Origins() []string {
	return strings.Split(c.CORSOrigins, ",")
}
