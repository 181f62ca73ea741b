// Package orders turns paid or pending carts into immutable orders and manages
// their status afterwards.
package orders

import (
	"context"

	"storefront/internal/apperrors"
	"storefront/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("order %q not found", orderID)
	}
	if err != nil {
		return nil, apperrors.Storage(errors.Wrap(err, "find order"), "get order")
	}
	return &order, nil
}

// ByPaymentRef finds the order already recorded for a provider payment reference.
func (s *Store) ByPaymentRef(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, "payment_ref = ?", ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("no order for payment %q", ref)
	}
	if err != nil {
		return nil, apperrors.Storage(errors.Wrap(err, "find order by payment ref"), "get order")
	}
	return &order, nil
}

type ListFilter struct {
	Status models.OrderStatus
	Limit  int
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Order, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	query := s.db.WithContext(ctx).Preload("Items").Order("created_at DESC, id").Limit(f.Limit)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, apperrors.Storage(errors.Wrap(err, "find orders"), "list orders")
	}
	return orders, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error; err != nil {
		return 0, apperrors.Storage(errors.Wrap(err, "count orders"), "count orders")
	}
	return n, nil
}

// compareAndSetStatus moves an order from one status to another, failing if a
// concurrent writer changed it first.
func (s *Store) compareAndSetStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return false, apperrors.Storage(errors.Wrap(res.Error, "update order status"), "update order")
	}
	return res.RowsAffected == 1, nil
}
