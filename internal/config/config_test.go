package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, cfg.ShippingFlatFee.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.True(t, cfg.MockPayments())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TAX_RATE", "0.2")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Env:              "development",
			PaymentsFallback: FallbackMock,
			ProviderTimeout:  time.Second,
		}
	}

	t.Run("mock in production is rejected", func(t *testing.T) {
		cfg := base()
		cfg.Env = "production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown fallback is rejected", func(t *testing.T) {
		cfg := base()
		cfg.PaymentsFallback = "stub"
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative tax is rejected", func(t *testing.T) {
		cfg := base()
		cfg.TaxRate = decimal.NewFromInt(-1)
		assert.Error(t, cfg.Validate())
	})

	t.Run("production without fallback is fine", func(t *testing.T) {
		cfg := base()
		cfg.Env = "production"
		cfg.PaymentsFallback = FallbackNone
		assert.NoError(t, cfg.Validate())
	})
}
