package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/logger"
	"storefront/internal/payments"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(7098), MinorUnits(decimal.RequireFromString("70.98")))
	assert.Equal(t, int64(500), MinorUnits(decimal.RequireFromString("5")))
	assert.Equal(t, int64(1000), MinorUnits(decimal.RequireFromString("9.995")))
}

func TestCreateIntent(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","amount":7098,"currency":"usd",
			"status":"requires_payment_method","client_secret":"pi_123_secret_abc"}`))
	}))
	defer srv.Close()

	client := NewIntentClient(IntentConfig{SecretKey: "sk_test_123", Timeout: 5 * time.Second, APIURL: srv.URL}, logger.NewNop())
	intent, err := client.CreateIntent(context.Background(), IntentRequest{
		Amount:   decimal.RequireFromString("70.98"),
		Currency: "USD",
		CartID:   "c1",
		Customer: payments.Customer{Name: "Ada", Email: "ada@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.Equal(t, payments.ModeLive, intent.Mode)

	assert.Equal(t, "7098", form.Get("amount"))
	assert.Equal(t, "usd", form.Get("currency"))
	assert.Equal(t, "c1", form.Get("metadata[cart_id]"))
	assert.Equal(t, "ada@example.com", form.Get("metadata[customer_email]"))
	assert.Equal(t, "Ada", form.Get("metadata[customer_name]"))
}

func TestCreateIntentProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Amount must be at least 50 cents"}}`))
	}))
	defer srv.Close()

	client := NewIntentClient(IntentConfig{SecretKey: "sk_test_123", Timeout: time.Second, APIURL: srv.URL}, logger.NewNop())
	_, err := client.CreateIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(0), Currency: "usd", CartID: "c1"})
	assert.True(t, apperrors.Is(err, apperrors.KindProvider))
}

func TestCreateIntentUnconfigured(t *testing.T) {
	client := NewIntentClient(IntentConfig{Timeout: time.Second}, logger.NewNop())
	_, err := client.CreateIntent(context.Background(), IntentRequest{CartID: "c1"})
	assert.True(t, apperrors.Is(err, apperrors.KindProvider))
}

func TestMockIntents(t *testing.T) {
	intent, err := MockIntents{}.CreateIntent(context.Background(), IntentRequest{CartID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, payments.ModeMock, intent.Mode)
	assert.Contains(t, intent.ID, "pi_mock_")
	assert.Contains(t, intent.ClientSecret, "_secret_mock")
}
