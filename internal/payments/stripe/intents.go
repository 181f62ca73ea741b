// Package stripe is the intent/confirm payment adapter and webhook verifier.
package stripe

import (
	"context"
	"net/http"
	"strings"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/logger"
	"storefront/internal/payments"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// State follows one payment from intent creation to a stored order.
type State string

const (
	StateIntentCreated   State = "intent_created"
	StateClientConfirmed State = "client_confirmed"
	StateWebhookVerified State = "webhook_verified"
	StateMaterialized    State = "materialized"
)

// IntentStateOf maps a PaymentIntent status onto State. Only the webhook moves a
// payment past StateClientConfirmed.
func IntentStateOf(status stripeapi.PaymentIntentStatus) State {
	switch status {
	case stripeapi.PaymentIntentStatusProcessing, stripeapi.PaymentIntentStatusSucceeded:
		return StateClientConfirmed
	default:
		return StateIntentCreated
	}
}

// IntentCreator is what checkout needs from an intent/confirm provider.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*payments.Intent, error)
}

type IntentRequest struct {
	Amount   decimal.Decimal
	Currency string
	CartID   string
	Customer payments.Customer
}

// MinorUnits converts a decimal amount to the integer cents Stripe expects.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type IntentClient struct {
	client paymentintent.Client
	logger *logger.Logger
}

type IntentConfig struct {
	SecretKey string
	Timeout   time.Duration
	// APIURL overrides the Stripe API host; tests point it at an httptest server.
	APIURL string
}

func NewIntentClient(cfg IntentConfig, log *logger.Logger) *IntentClient {
	backendCfg := &stripeapi.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     leveledLogger{log},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripeapi.String(cfg.APIURL)
	}

	return &IntentClient{
		client: paymentintent.Client{
			B:   stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		logger: log,
	}
}

func (c *IntentClient) Configured() bool {
	return c.client.Key != ""
}

// CreateIntent creates a PaymentIntent whose metadata carries the cart id and the
// customer, so the webhook can find its way back to the cart.
func (c *IntentClient) CreateIntent(ctx context.Context, req IntentRequest) (*payments.Intent, error) {
	if !c.Configured() {
		return nil, apperrors.Provider(nil, "stripe secret key is not configured")
	}
	if req.CartID == "" {
		return nil, apperrors.Validation("cart id is required")
	}

	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(MinorUnits(req.Amount)),
		Currency: stripeapi.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("cart_id", req.CartID)
	if req.Customer.Email != "" {
		params.AddMetadata("customer_email", req.Customer.Email)
		params.ReceiptEmail = stripeapi.String(req.Customer.Email)
	}
	if req.Customer.Name != "" {
		params.AddMetadata("customer_name", req.Customer.Name)
	}

	pi, err := c.client.New(params)
	if err != nil {
		return nil, apperrors.Provider(err, "create payment intent")
	}

	c.logger.Info("Created payment intent %s for cart %s (%s)", pi.ID, req.CartID, IntentStateOf(pi.Status))
	return &payments.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Mode:         payments.ModeLive,
	}, nil
}

// MockIntents issues labelled fake intents when Stripe is unavailable in development.
type MockIntents struct{}

func (MockIntents) CreateIntent(ctx context.Context, req IntentRequest) (*payments.Intent, error) {
	if req.CartID == "" {
		return nil, apperrors.Validation("cart id is required")
	}
	id := "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return &payments.Intent{
		ID:           id,
		ClientSecret: id + "_secret_mock",
		Mode:         payments.ModeMock,
	}, nil
}

type leveledLogger struct {
	l *logger.Logger
}

func (s leveledLogger) Debugf(format string, v ...interface{}) { s.l.Debug(format, v...) }
func (s leveledLogger) Infof(format string, v ...interface{})  { s.l.Debug(format, v...) }
func (s leveledLogger) Warnf(format string, v ...interface{})  { s.l.Warn(format, v...) }
func (s leveledLogger) Errorf(format string, v ...interface{}) { s.l.Error(format, v...) }
