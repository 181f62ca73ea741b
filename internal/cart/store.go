package cart

import (
	"context"
	"time"

	"storefront/internal/apperrors"
	"storefront/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists carts and their lines. Every write goes straight to the database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&cart, "id = ?", cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("cart %q not found", cartID)
	}
	if err != nil {
		return nil, apperrors.Storage(errors.Wrap(err, "find cart"), "load cart")
	}
	return &cart, nil
}

func (s *Store) Create(ctx context.Context) (*models.Cart, error) {
	cart := &models.Cart{}
	if err := s.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, apperrors.Storage(errors.Wrap(err, "insert cart"), "create cart")
	}
	cart.Lines = []models.CartLine{}
	return cart, nil
}

// AddQuantity inserts a line for the variant or increments the existing one.
func (s *Store) AddQuantity(ctx context.Context, cartID, variantID string, qty int) error {
	line := models.CartLine{CartID: cartID, VariantID: variantID, Quantity: qty}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "variant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_lines.quantity + ?", qty),
			"updated_at": time.Now(),
		}),
	}).Create(&line).Error
	if err != nil {
		return apperrors.Storage(errors.Wrap(err, "upsert cart line"), "add line")
	}
	return s.touch(ctx, cartID)
}

func (s *Store) SetQuantity(ctx context.Context, cartID, lineID string, qty int) error {
	res := s.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Update("quantity", qty)
	if res.Error != nil {
		return apperrors.Storage(errors.Wrap(res.Error, "update cart line"), "update line")
	}
	if res.RowsAffected == 0 {
		return nil
	}
	return s.touch(ctx, cartID)
}

func (s *Store) DeleteLine(ctx context.Context, cartID, lineID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND cart_id = ?", lineID, cartID).Delete(&models.CartLine{})
	if res.Error != nil {
		return apperrors.Storage(errors.Wrap(res.Error, "delete cart line"), "remove line")
	}
	if res.RowsAffected == 0 {
		return nil
	}
	return s.touch(ctx, cartID)
}

// ClearLines deletes exactly the given lines and reports whether all of them were
// still present. A false result means a concurrent writer cleared the cart first.
func (s *Store) ClearLines(ctx context.Context, cartID string, lineIDs []string) (bool, error) {
	if len(lineIDs) == 0 {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Where("cart_id = ? AND id IN ?", cartID, lineIDs).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return false, apperrors.Storage(errors.Wrap(res.Error, "delete cart lines"), "clear cart")
	}
	if res.RowsAffected != int64(len(lineIDs)) {
		return false, nil
	}
	return true, s.touch(ctx, cartID)
}

func (s *Store) touch(ctx context.Context, cartID string) error {
	err := s.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", time.Now()).Error
	if err != nil {
		return apperrors.Storage(errors.Wrap(err, "touch cart"), "save cart")
	}
	return nil
}
