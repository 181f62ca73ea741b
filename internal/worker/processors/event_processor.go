package processors

import (
	"context"
	"fmt"

	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/worker/processors/notify"

	"gorm.io/gorm"
)

type EventProcessor struct {
	logger   *logger.Logger
	notifier *notify.Notifier
}

func NewEventProcessor(db *gorm.DB, logger *logger.Logger) *EventProcessor {
	return &EventProcessor{
		logger:   logger,
		notifier: notify.New(db, logger),
	}
}

func (ep *EventProcessor) Process(ctx context.Context, event events.Event) error {
	ep.logger.Debug("Processing event: %s %s", event.Type, event.OrderID)

	if event.OrderID == "" {
		return fmt.Errorf("event %s has no order id", event.Type)
	}

	switch event.Type {
	case events.TypeOrderCreated:
		recipient, _ := event.Data["customer_email"].(string)
		if recipient == "" {
			ep.logger.Warn("Order %s has no customer email, skipping confirmation", event.OrderID)
			return nil
		}
		_, err := ep.notifier.Notify(ctx, event.OrderID, notify.KindOrderConfirmation, recipient)
		return err
	case events.TypeOrderStatusChanged:
		to, _ := event.Data["to"].(string)
		if to == "" {
			return fmt.Errorf("status event for order %s has no target status", event.OrderID)
		}
		recipient, _ := event.Data["customer_email"].(string)
		_, err := ep.notifier.Notify(ctx, event.OrderID, notify.KindStatusPrefix+to, recipient)
		return err
	default:
		ep.logger.Debug("Ignoring event type %s", event.Type)
		return nil
	}
}
