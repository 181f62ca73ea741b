package paypal

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/payments"
)

// MockTokenPrefix marks tokens issued by MockGateway.
const MockTokenPrefix = "MOCK-"

// MockGateway stands in for PayPal when the provider is unreachable in development.
// Its approval URL points straight back at the storefront return handler.
type MockGateway struct{}

func (MockGateway) CreateOrder(ctx context.Context, req OrderRequest) (*payments.ProviderOrder, error) {
	if req.CartID == "" {
		return nil, apperrors.Validation("cart id is required")
	}
	token := MockTokenPrefix + req.CartID

	approval, err := url.Parse(req.ReturnURL)
	if err != nil {
		return nil, apperrors.Validation("invalid return url: %v", err)
	}
	q := approval.Query()
	q.Set("token", token)
	approval.RawQuery = q.Encode()

	return &payments.ProviderOrder{
		ID:          token,
		ApprovalURL: approval.String(),
		Mode:        payments.ModeMock,
	}, nil
}

func (MockGateway) Capture(ctx context.Context, token string) (payments.Confirmation, error) {
	if !IsMockToken(token) {
		return payments.Confirmation{}, apperrors.Validation("not a mock paypal token")
	}
	return payments.Confirmation{
		Outcome:    payments.OutcomeConfirmed,
		Provider:   payments.ProviderMock,
		EventType:  "mock.capture",
		CartID:     strings.TrimPrefix(token, MockTokenPrefix),
		PaymentRef: token,
		Reason:     fmt.Sprintf("mock capture of %s", token),
	}, nil
}

func IsMockToken(token string) bool {
	return strings.HasPrefix(token, MockTokenPrefix) && len(token) > len(MockTokenPrefix)
}
