package api

import (
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/orders"
	"storefront/internal/payments/paypal"
	"storefront/internal/payments/stripe"
	"storefront/internal/pricing"
)

// NewServices wires the domain services from configuration.
func NewServices(cfg *config.Config, logger *logger.Logger, db *database.Database, publisher events.Publisher) Services {
	catalogStore := catalog.NewStore(db.DB)
	carts := cart.NewService(cart.NewStore(db.DB), catalogStore)
	calculator := pricing.NewCalculator(
		cfg.TaxRate,
		pricing.FlatRateShipping(cfg.ShippingFlatFee, cfg.FreeShippingThreshold),
		cfg.Currency,
	)
	orderStore := orders.NewStore(db.DB)

	checkoutService := checkout.NewService(checkout.Deps{
		Carts:        carts,
		Resolver:     catalogStore,
		Calculator:   calculator,
		Materializer: orders.NewMaterializer(db.DB, calculator, publisher, logger),
		Orders:       orderStore,
		Stripe: stripe.NewIntentClient(stripe.IntentConfig{
			SecretKey: cfg.StripeSecretKey,
			Timeout:   cfg.ProviderTimeout,
		}, logger),
		PayPal:       paypal.NewClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.ProviderTimeout, logger),
		Verifier:     stripe.NewVerifier(cfg.StripeWebhookSecret),
		Logger:       logger,
		BaseURL:      cfg.PublicBaseURL,
		MockPayments: cfg.MockPayments(),
	})

	return Services{
		Catalog:  catalogStore,
		Carts:    carts,
		Checkout: checkoutService,
		Orders:   orders.NewService(orderStore, publisher, logger),
	}
}
