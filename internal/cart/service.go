// Package cart manages the session-bound shopping cart.
package cart

import (
	"context"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/models"
)

type VariantFinder interface {
	Variant(ctx context.Context, variantID string) (*models.Variant, error)
}

type Service struct {
	store   *Store
	catalog VariantFinder
}

func NewService(store *Store, catalog VariantFinder) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
	}
}

// Get loads a cart without creating one.
func (s *Service) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	return s.store.Get(ctx, cartID)
}

// GetOrCreate always returns a usable cart. created reports that a new id was issued
// and the caller must hand it back to the client.
func (s *Service) GetOrCreate(ctx context.Context, cartID string) (*models.Cart, bool, error) {
	if cartID = strings.TrimSpace(cartID); cartID != "" {
		cart, err := s.store.Get(ctx, cartID)
		if err == nil {
			return cart, false, nil
		}
		if !apperrors.Is(err, apperrors.KindNotFound) {
			return nil, false, err
		}
	}

	cart, err := s.store.Create(ctx)
	if err != nil {
		return nil, false, err
	}
	return cart, true, nil
}

func (s *Service) AddLine(ctx context.Context, cartID, variantID string, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, apperrors.Validation("quantity must be at least 1, got %d", qty)
	}
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return nil, apperrors.Validation("variant id is required")
	}

	if _, err := s.catalog.Variant(ctx, variantID); err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Validation("unknown variant %q", variantID)
		}
		return nil, err
	}

	if err := s.store.AddQuantity(ctx, cartID, variantID, qty); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, cartID)
}

// UpdateLine sets a line quantity, never going below 1. Unknown lines are ignored.
func (s *Service) UpdateLine(ctx context.Context, cartID, lineID string, qty int) (*models.Cart, error) {
	if qty < 1 {
		qty = 1
	}
	if err := s.store.SetQuantity(ctx, cartID, lineID, qty); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, cartID)
}

// RemoveLine drops a line. Unknown lines are ignored.
func (s *Service) RemoveLine(ctx context.Context, cartID, lineID string) (*models.Cart, error) {
	if err := s.store.DeleteLine(ctx, cartID, lineID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, cartID)
}
