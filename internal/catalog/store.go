// Package catalog is the read-mostly product, variant and inventory store.
package catalog

import (
	"context"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to an open transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

type ListFilter struct {
	Page   int
	Limit  int
	Search string
	Vendor string
}

func (s *Store) ListProducts(ctx context.Context, f ListFilter) ([]models.Product, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	query := s.db.WithContext(ctx).Model(&models.Product{})
	if f.Vendor != "" {
		query = query.Where("vendor = ?", f.Vendor)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(handle) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Storage(errors.Wrap(err, "count products"), "list products")
	}

	var products []models.Product
	err := query.Preload("Variants").
		Order("created_at DESC, id").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, apperrors.Storage(errors.Wrap(err, "find products"), "list products")
	}
	return products, total, nil
}

func (s *Store) ProductByHandle(ctx context.Context, handle string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Variants").First(&product, "handle = ?", handle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("product %q not found", handle)
	}
	if err != nil {
		return nil, apperrors.Storage(errors.Wrap(err, "find product"), "get product")
	}
	return &product, nil
}

// Variant resolves a single variant together with its product.
func (s *Store) Variant(ctx context.Context, variantID string) (*models.Variant, error) {
	found, err := s.VariantsByID(ctx, []string{variantID})
	if err != nil {
		return nil, err
	}
	v, ok := found[variantID]
	if !ok {
		return nil, apperrors.NotFound("variant %q not found", variantID)
	}
	return &v, nil
}

// VariantsByID loads variants with their product in one round trip. Variants whose
// product is gone are left out, the same as unknown ids.
func (s *Store) VariantsByID(ctx context.Context, ids []string) (map[string]models.Variant, error) {
	out := make(map[string]models.Variant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var variants []models.Variant
	err := s.db.WithContext(ctx).Preload("Product").Where("id IN ?", ids).Find(&variants).Error
	if err != nil {
		return nil, apperrors.Storage(errors.Wrap(err, "find variants"), "resolve variants")
	}
	for _, v := range variants {
		if v.Product == nil {
			continue
		}
		out[v.ID] = v
	}
	return out, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	for _, v := range p.Variants {
		if v.Price.IsNegative() {
			return apperrors.Validation("variant %q has a negative price", v.Title)
		}
	}
	if strings.TrimSpace(p.Handle) == "" || strings.TrimSpace(p.Title) == "" {
		return apperrors.Validation("product handle and title are required")
	}
	err := s.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Validation("product handle %q already exists", p.Handle)
	}
	if err != nil {
		return apperrors.Storage(errors.Wrap(err, "insert product"), "create product")
	}
	return nil
}

func (s *Store) SetVariantPrice(ctx context.Context, variantID string, price decimal.Decimal) error {
	if price.IsNegative() {
		return apperrors.Validation("price must not be negative")
	}
	res := s.db.WithContext(ctx).Model(&models.Variant{}).Where("id = ?", variantID).Update("price", price)
	if res.Error != nil {
		return apperrors.Storage(errors.Wrap(res.Error, "update variant"), "set price")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("variant %q not found", variantID)
	}
	return nil
}

func (s *Store) DeleteVariant(ctx context.Context, variantID string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Variant{}, "id = ?", variantID).Error; err != nil {
		return apperrors.Storage(errors.Wrap(err, "delete variant"), "delete variant")
	}
	return nil
}

func (s *Store) SetStock(ctx context.Context, productID string, quantity int) error {
	if quantity < 0 {
		return apperrors.Validation("stock must not be negative")
	}
	inv := models.Inventory{ProductID: productID, Quantity: quantity}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&inv).Error
	if err != nil {
		return apperrors.Storage(errors.Wrap(err, "upsert inventory"), "set stock")
	}
	return nil
}

// Stock returns the tracked quantity, or ok=false for untracked products.
func (s *Store) Stock(ctx context.Context, productID string) (quantity int, ok bool, err error) {
	var inv models.Inventory
	err = s.db.WithContext(ctx).First(&inv, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperrors.Storage(errors.Wrap(err, "find inventory"), "get stock")
	}
	return inv.Quantity, true, nil
}

// DecrementStock takes quantity from a tracked product in a single conditional update.
// Untracked products are left alone.
func (s *Store) DecrementStock(ctx context.Context, productID string, quantity int) error {
	res := s.db.WithContext(ctx).Model(&models.Inventory{}).
		Where("product_id = ? AND quantity >= ?", productID, quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return apperrors.Storage(errors.Wrap(res.Error, "decrement inventory"), "decrement stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	_, tracked, err := s.Stock(ctx, productID)
	if err != nil {
		return err
	}
	if !tracked {
		return nil
	}
	return &apperrors.InsufficientStockError{ProductID: productID, Requested: quantity}
}
