package stripe

import (
	"encoding/json"
	"strings"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/models"
	"storefront/internal/payments"

	"github.com/stripe/stripe-go/v80/webhook"
)

const (
	EventCheckoutSessionCompleted   = "checkout.session.completed"
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
)

// Verifier authenticates Stripe webhook deliveries and reduces them to a Confirmation.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Verify checks the Stripe-Signature header against the raw body before anything
// in the payload is trusted. An unset secret rejects every delivery.
func (v *Verifier) Verify(payload []byte, header string) (payments.Confirmation, error) {
	if v.secret == "" {
		return payments.Confirmation{}, apperrors.Auth("webhook secret is not configured")
	}
	if header == "" {
		return payments.Confirmation{}, apperrors.Auth("missing Stripe-Signature header")
	}

	event, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return payments.Confirmation{}, apperrors.Auth("invalid webhook signature: %v", err)
	}

	conf := payments.Confirmation{
		Provider:  payments.ProviderStripe,
		EventType: string(event.Type),
	}
	if event.Data == nil {
		return conf, nil
	}

	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return conf, apperrors.Validation("malformed checkout session: %v", err)
		}
		session.fill(&conf)
		conf.Outcome = payments.OutcomeConfirmed
	case EventPaymentIntentSucceeded, EventPaymentIntentPaymentFailed:
		var intent paymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return conf, apperrors.Validation("malformed payment intent: %v", err)
		}
		intent.fill(&conf)
		if string(event.Type) == EventPaymentIntentSucceeded {
			conf.Outcome = payments.OutcomeConfirmed
		} else {
			conf.Outcome = payments.OutcomeFailed
			conf.Reason = intent.LastPaymentError.Message
		}
	}
	return conf, nil
}

type address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

func (a address) model() models.Address {
	return models.Address{Line1: a.Line1, City: a.City, Country: a.Country, PostalCode: a.PostalCode}
}

type checkoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
	// string id or an expanded object
	PaymentIntent   json.RawMessage `json:"payment_intent"`
	CustomerDetails struct {
		Email   string  `json:"email"`
		Name    string  `json:"name"`
		Address address `json:"address"`
	} `json:"customer_details"`
}

func (s checkoutSession) fill(conf *payments.Confirmation) {
	conf.CartID = s.Metadata["cart_id"]
	if conf.CartID == "" {
		conf.CartID = s.ClientReferenceID
	}
	conf.PaymentRef = s.paymentIntentID()
	if conf.PaymentRef == "" {
		conf.PaymentRef = s.ID
	}
	conf.Customer = payments.Customer{
		Name:    firstNonEmpty(s.CustomerDetails.Name, s.Metadata["customer_name"]),
		Email:   firstNonEmpty(s.CustomerDetails.Email, s.Metadata["customer_email"]),
		Address: s.CustomerDetails.Address.model(),
	}
}

func (s checkoutSession) paymentIntentID() string {
	if len(s.PaymentIntent) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(s.PaymentIntent, &id); err == nil {
		return id
	}
	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(s.PaymentIntent, &expanded); err == nil {
		return expanded.ID
	}
	return ""
}

type paymentIntent struct {
	ID           string            `json:"id"`
	Metadata     map[string]string `json:"metadata"`
	ReceiptEmail string            `json:"receipt_email"`
	Shipping     *struct {
		Name    string  `json:"name"`
		Address address `json:"address"`
	} `json:"shipping"`
	LastPaymentError struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (pi paymentIntent) fill(conf *payments.Confirmation) {
	conf.CartID = pi.Metadata["cart_id"]
	conf.PaymentRef = pi.ID
	conf.Customer = payments.Customer{
		Name:  pi.Metadata["customer_name"],
		Email: firstNonEmpty(pi.Metadata["customer_email"], pi.ReceiptEmail),
	}
	if pi.Shipping != nil {
		conf.Customer.Name = firstNonEmpty(conf.Customer.Name, pi.Shipping.Name)
		conf.Customer.Address = pi.Shipping.Address.model()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
