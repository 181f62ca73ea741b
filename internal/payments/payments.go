// Package payments holds the provider-neutral values that cross from a payment
// adapter into checkout. Raw provider payloads never leave the adapters.
package payments

import (
	"storefront/internal/models"
)

type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPayPal Provider = "paypal"
	ProviderMock   Provider = "mock"
)

// Outcome classifies a provider callback.
type Outcome int

const (
	OutcomeUnrecognized Outcome = iota
	OutcomeConfirmed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unrecognized"
	}
}

type Customer struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Address models.Address `json:"address"`
}

// Confirmation is what an adapter learned from a verified provider message.
// CartID may be empty when the provider did not echo it back.
type Confirmation struct {
	Outcome    Outcome
	Provider   Provider
	EventType  string
	CartID     string
	PaymentRef string
	Customer   Customer
	Reason     string
}

func (c Confirmation) Confirmed() bool {
	return c.Outcome == OutcomeConfirmed
}

// Method maps the provider onto the order's payment method.
func (c Confirmation) Method() models.PaymentMethod {
	switch c.Provider {
	case ProviderStripe:
		return models.PaymentMethodStripe
	case ProviderPayPal:
		return models.PaymentMethodPayPal
	case ProviderMock:
		return models.PaymentMethodMock
	default:
		return models.PaymentMethodManual
	}
}

// Intent is the client-side handle for an intent/confirm payment.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Mode         string `json:"mode"`
}

// ProviderOrder is a created redirect/capture order awaiting buyer approval.
type ProviderOrder struct {
	ID          string `json:"id"`
	ApprovalURL string `json:"approval_url"`
	Mode        string `json:"mode"`
}

const (
	ModeLive = "live"
	ModeMock = "mock"
)
