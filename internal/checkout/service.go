// Package checkout drives a cart through pricing, payment and order creation.
package checkout

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/cart"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/payments"
	"storefront/internal/payments/paypal"
	"storefront/internal/payments/stripe"
	"storefront/internal/pricing"
)

type WebhookVerifier interface {
	Verify(payload []byte, header string) (payments.Confirmation, error)
}

type Deps struct {
	Carts        *cart.Service
	Resolver     pricing.VariantResolver
	Calculator   *pricing.Calculator
	Materializer *orders.Materializer
	Orders       *orders.Store
	Stripe       stripe.IntentCreator
	PayPal       paypal.Gateway
	Verifier     WebhookVerifier
	Logger       *logger.Logger

	// BaseURL is the public origin PayPal redirects the buyer back to.
	BaseURL string
	// MockPayments lets initiation fall back to mock providers when the real one fails.
	MockPayments bool
}

type Service struct {
	carts        *cart.Service
	resolver     pricing.VariantResolver
	calculator   *pricing.Calculator
	materializer *orders.Materializer
	orders       *orders.Store
	stripe       stripe.IntentCreator
	paypal       paypal.Gateway
	verifier     WebhookVerifier
	logger       *logger.Logger
	baseURL      string
	mock         bool
}

func NewService(d Deps) *Service {
	return &Service{
		carts:        d.Carts,
		resolver:     d.Resolver,
		calculator:   d.Calculator,
		materializer: d.Materializer,
		orders:       d.Orders,
		stripe:       d.Stripe,
		paypal:       d.PayPal,
		verifier:     d.Verifier,
		logger:       d.Logger,
		baseURL:      strings.TrimRight(d.BaseURL, "/"),
		mock:         d.MockPayments,
	}
}

// Quote prices the cart as it stands. A stale cart returns the partial summary
// together with *apperrors.StaleReferenceError.
func (s *Service) Quote(ctx context.Context, cartID string) (*pricing.Summary, error) {
	c, err := s.carts.Get(ctx, cartID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, apperrors.ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	return s.calculator.Quote(ctx, s.resolver, c.Lines)
}

type SubmitRequest struct {
	Name      string         `json:"name" form:"name"`
	Email     string         `json:"email" form:"email"`
	Address   models.Address `json:"address" form:"address"`
	PaymentID string         `json:"paymentId" form:"paymentId"`
}

func (r SubmitRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperrors.Validation("invalid email address %q", r.Email)
	}
	if strings.TrimSpace(r.Address.Line1) == "" {
		missing = append(missing, "address.line1")
	}
	if strings.TrimSpace(r.Address.City) == "" {
		missing = append(missing, "address.city")
	}
	if strings.TrimSpace(r.Address.Country) == "" {
		missing = append(missing, "address.country")
	}
	if strings.TrimSpace(r.Address.PostalCode) == "" {
		missing = append(missing, "address.postalCode")
	}
	if len(missing) > 0 {
		return apperrors.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Submit turns the checkout form into an order. A non-empty PaymentID marks the
// order paid; resubmitting the same PaymentID returns the order already created.
func (s *Service) Submit(ctx context.Context, cartID string, req SubmitRequest) (*models.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	paymentID := strings.TrimSpace(req.PaymentID)

	if _, err := s.Quote(ctx, cartID); err != nil {
		if errors.Is(err, apperrors.ErrEmptyCart) && paymentID != "" {
			if existing, lookupErr := s.orders.ByPaymentRef(ctx, paymentID); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	status := models.OrderStatusPending
	if paymentID != "" {
		status = models.OrderStatusPaid
	}
	order, err := s.materializer.Materialize(ctx, orders.MaterializeRequest{
		CartID:        cartID,
		Status:        status,
		PaymentRef:    paymentID,
		PaymentMethod: models.PaymentMethodManual,
		Customer: payments.Customer{
			Name:    req.Name,
			Email:   req.Email,
			Address: req.Address,
		},
	})
	if err != nil {
		return nil, err
	}
	if order != nil {
		return order, nil
	}
	if paymentID != "" {
		if existing, err := s.orders.ByPaymentRef(ctx, paymentID); err == nil {
			return existing, nil
		}
	}
	return nil, apperrors.ErrEmptyCart
}

// StartStripe creates a payment intent for the current cart total.
func (s *Service) StartStripe(ctx context.Context, cartID string, customer payments.Customer) (*payments.Intent, *pricing.Summary, error) {
	summary, err := s.Quote(ctx, cartID)
	if err != nil {
		return nil, summary, err
	}

	req := stripe.IntentRequest{
		Amount:   summary.Total,
		Currency: summary.Currency,
		CartID:   cartID,
		Customer: customer,
	}
	intent, err := s.stripe.CreateIntent(ctx, req)
	if err == nil {
		return intent, summary, nil
	}
	if !s.mock || !apperrors.Is(err, apperrors.KindProvider) {
		return nil, summary, err
	}

	s.logger.Warn("Stripe unavailable, issuing mock intent for cart %s: %v", cartID, err)
	intent, err = stripe.MockIntents{}.CreateIntent(ctx, req)
	return intent, summary, err
}

// StartPayPal registers a PayPal order and returns where to send the buyer.
func (s *Service) StartPayPal(ctx context.Context, cartID string) (*payments.ProviderOrder, error) {
	summary, err := s.Quote(ctx, cartID)
	if err != nil {
		return nil, err
	}

	req := paypal.OrderRequest{
		Amount:    summary.Total,
		Currency:  summary.Currency,
		CartID:    cartID,
		ReturnURL: s.baseURL + "/checkout/paypal/return",
		CancelURL: s.baseURL + "/checkout/paypal/cancel",
	}
	order, err := s.paypal.CreateOrder(ctx, req)
	if err == nil {
		return order, nil
	}
	if !s.mock || !apperrors.Is(err, apperrors.KindProvider) {
		return nil, err
	}

	s.logger.Warn("PayPal unavailable, issuing mock approval for cart %s: %v", cartID, err)
	return paypal.MockGateway{}.CreateOrder(ctx, req)
}

// CompletePayPal captures the approved order behind token and materializes its
// cart. A nil order with a nil error means the capture did not confirm a payment.
func (s *Service) CompletePayPal(ctx context.Context, token string) (*models.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.Validation("missing paypal token")
	}

	var gateway paypal.Gateway = s.paypal
	if paypal.IsMockToken(token) {
		if !s.mock {
			return nil, apperrors.Validation("mock payments are disabled")
		}
		gateway = paypal.MockGateway{}
	}

	// the token is the payment reference, so a replayed return finds its order
	// here instead of asking PayPal to capture twice
	existing, err := s.orders.ByPaymentRef(ctx, token)
	if err == nil {
		return existing, nil
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, err
	}

	conf, err := gateway.Capture(ctx, token)
	if err != nil {
		return nil, err
	}
	if !conf.Confirmed() || conf.CartID == "" {
		s.logger.Warn("PayPal capture for %s not confirmed: %s", token, conf.Reason)
		return nil, nil
	}
	return s.materializeConfirmed(ctx, conf)
}

type WebhookResult struct {
	EventType string
	Outcome   payments.Outcome
	State     stripe.State
	Order     *models.Order
}

// ConfirmWebhook verifies a Stripe delivery and materializes the cart it confirms.
// Only verification failures and storage errors are returned; every other case is
// acknowledged so the provider stops redelivering.
func (s *Service) ConfirmWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	conf, err := s.verifier.Verify(payload, signature)
	if err != nil {
		if apperrors.Is(err, apperrors.KindAuth) {
			s.logger.Warn("Rejected webhook: %v", err)
			return nil, err
		}
		s.logger.Warn("Ignoring malformed webhook: %v", err)
		return &WebhookResult{}, nil
	}

	result := &WebhookResult{EventType: conf.EventType, Outcome: conf.Outcome}
	switch conf.Outcome {
	case payments.OutcomeConfirmed:
		result.State = stripe.StateWebhookVerified
		s.logger.Debug("Payment %s for cart %s is %s", conf.PaymentRef, conf.CartID, result.State)
		if conf.CartID == "" {
			s.logger.Warn("Webhook %s for payment %s carries no cart id", conf.EventType, conf.PaymentRef)
			return result, nil
		}
		order, err := s.materializeConfirmed(ctx, conf)
		var stale *apperrors.StaleReferenceError
		var stock *apperrors.InsufficientStockError
		switch {
		case errors.As(err, &stale):
			s.logger.Warn("Cart %s references unavailable items %v, no order created", conf.CartID, stale.LineIDs)
			return result, nil
		case errors.As(err, &stock):
			s.logger.Error("Paid cart %s cannot be fulfilled: %v", conf.CartID, err)
			return result, nil
		case err != nil:
			return nil, err
		}
		result.Order = order
		if order != nil {
			result.State = stripe.StateMaterialized
			s.logger.Info("Payment %s is %s as order %s", conf.PaymentRef, result.State, order.OrderNumber)
		}
	case payments.OutcomeFailed:
		s.logger.Info("Payment %s for cart %s failed: %s", conf.PaymentRef, conf.CartID, conf.Reason)
	default:
		s.logger.Debug("Ignoring webhook event %s", conf.EventType)
	}
	return result, nil
}

// materializeConfirmed creates the paid order, or returns the one an earlier
// delivery of the same payment already created.
func (s *Service) materializeConfirmed(ctx context.Context, conf payments.Confirmation) (*models.Order, error) {
	order, err := s.materializer.Materialize(ctx, orders.MaterializeRequest{
		CartID:        conf.CartID,
		Status:        models.OrderStatusPaid,
		PaymentRef:    conf.PaymentRef,
		PaymentMethod: conf.Method(),
		Customer:      conf.Customer,
	})
	if err != nil || order != nil {
		return order, err
	}
	if conf.PaymentRef == "" {
		return nil, nil
	}
	existing, err := s.orders.ByPaymentRef(ctx, conf.PaymentRef)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, nil
	}
	return existing, err
}
