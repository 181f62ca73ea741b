package processors

import (
	"context"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessOrderCreated(t *testing.T) {
	ctx := context.Background()
	db := database.NewTest(t)
	ep := NewEventProcessor(db.DB, logger.NewNop())

	order := &models.Order{
		ID:            "order-1",
		OrderNumber:   "ORD-20260101-ABCDEF0123",
		Status:        models.OrderStatusPaid,
		CustomerEmail: "ada@example.com",
		Total:         decimal.RequireFromString("70.98"),
	}
	event := events.OrderCreated(order)

	require.NoError(t, ep.Process(ctx, event))
	// redelivery is absorbed
	require.NoError(t, ep.Process(ctx, event))

	var sent []models.OrderNotification
	require.NoError(t, db.DB.Find(&sent).Error)
	require.Len(t, sent, 1)
	assert.Equal(t, "order-1", sent[0].OrderID)
	assert.Equal(t, "order_confirmation", sent[0].Kind)
	assert.Equal(t, "ada@example.com", sent[0].Recipient)
}

func TestProcessStatusChanged(t *testing.T) {
	ctx := context.Background()
	db := database.NewTest(t)
	ep := NewEventProcessor(db.DB, logger.NewNop())

	order := &models.Order{ID: "order-2", Status: models.OrderStatusFulfilled, CustomerEmail: "bob@example.com"}
	require.NoError(t, ep.Process(ctx, events.StatusChanged(order, models.OrderStatusPaid)))

	var sent models.OrderNotification
	require.NoError(t, db.DB.First(&sent, "order_id = ?", "order-2").Error)
	assert.Equal(t, "status_fulfilled", sent.Kind)
}

func TestProcessSkipsAndRejects(t *testing.T) {
	ctx := context.Background()
	db := database.NewTest(t)
	ep := NewEventProcessor(db.DB, logger.NewNop())

	assert.NoError(t, ep.Process(ctx, events.Event{Type: "order.archived", OrderID: "x", Timestamp: time.Now()}))
	assert.NoError(t, ep.Process(ctx, events.OrderCreated(&models.Order{ID: "no-email"})))
	assert.Error(t, ep.Process(ctx, events.Event{Type: events.TypeOrderCreated}))

	var n int64
	require.NoError(t, db.DB.Model(&models.OrderNotification{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}
