package events

import (
	"context"
	"encoding/json"
	"testing"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderCreatedEncodesForWorker(t *testing.T) {
	order := &models.Order{
		ID:            "o1",
		OrderNumber:   "ORD-20260101-0000000001",
		Status:        models.OrderStatusPaid,
		CustomerEmail: "ada@example.com",
		Total:         decimal.RequireFromString("70.98"),
		PaymentMethod: models.PaymentMethodStripe,
	}

	raw, err := json.Marshal(OrderCreated(order))
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeOrderCreated, decoded.Type)
	assert.Equal(t, "o1", decoded.OrderID)
	assert.Equal(t, "70.98", decoded.Data["total"])
	assert.Equal(t, "ada@example.com", decoded.Data["customer_email"])
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypeOrderCreated, OrderID: "a"}))
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypeOrderStatusChanged, OrderID: "a"}))

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, TypeOrderStatusChanged, got[1].Type)
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), got[0]))
}
