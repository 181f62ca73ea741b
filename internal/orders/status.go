package orders

import (
	"context"

	"storefront/internal/apperrors"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/models"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:      {models.OrderStatusFulfilled, models.OrderStatusCancelled},
	models.OrderStatusFulfilled: {models.OrderStatusCancelled},
}

func ValidStatus(s models.OrderStatus) bool {
	switch s {
	case models.OrderStatusPending, models.OrderStatusPaid, models.OrderStatusFulfilled, models.OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
// Cancelled is terminal.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Service exposes order reads and the admin status transitions.
type Service struct {
	store     *Store
	publisher events.Publisher
	logger    *logger.Logger
}

func NewService(store *Store, publisher events.Publisher, logger *logger.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{store: store, publisher: publisher, logger: logger}
}

func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.Get(ctx, orderID)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Order, error) {
	return s.store.List(ctx, f)
}

func (s *Service) Transition(ctx context.Context, orderID string, to models.OrderStatus) (*models.Order, error) {
	if !ValidStatus(to) {
		return nil, apperrors.Validation("unknown order status %q", to)
	}

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if from == to {
		return order, nil
	}
	if !CanTransition(from, to) {
		return nil, apperrors.Validation("order %s cannot move from %s to %s", order.OrderNumber, from, to)
	}

	ok, err := s.store.compareAndSetStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Validation("order %s changed concurrently, reload and retry", order.OrderNumber)
	}
	order.Status = to

	s.logger.Info("Order %s moved from %s to %s", order.OrderNumber, from, to)
	if err := s.publisher.Publish(ctx, events.StatusChanged(order, from)); err != nil {
		s.logger.Warn("Failed to publish status change for order %s: %v", order.ID, err)
	}
	return order, nil
}
