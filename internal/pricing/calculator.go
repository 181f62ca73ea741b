// Package pricing derives checkout totals from cart lines and current variant prices.
package pricing

import (
	"context"

	"storefront/internal/apperrors"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// VariantResolver batch-loads variants with their product. Missing ids are simply
// absent from the result.
type VariantResolver interface {
	VariantsByID(ctx context.Context, ids []string) (map[string]models.Variant, error)
}

// ShippingPolicy prices shipping from the merchandise subtotal.
type ShippingPolicy func(subtotal decimal.Decimal) decimal.Decimal

// FlatRateShipping charges fee below threshold and nothing from threshold upward.
// A zero threshold disables free shipping.
func FlatRateShipping(fee, threshold decimal.Decimal) ShippingPolicy {
	return func(subtotal decimal.Decimal) decimal.Decimal {
		if threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold) {
			return decimal.Zero
		}
		return fee
	}
}

func FreeShipping() ShippingPolicy {
	return func(decimal.Decimal) decimal.Decimal { return decimal.Zero }
}

type PricedLine struct {
	LineID       string          `json:"line_id"`
	VariantID    string          `json:"variant_id"`
	ProductID    string          `json:"product_id"`
	Title        string          `json:"title"`
	VariantTitle string          `json:"variant_title"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

type Summary struct {
	Lines        []PricedLine    `json:"lines"`
	StaleLineIDs []string        `json:"stale_line_ids,omitempty"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}

type Calculator struct {
	taxRate  decimal.Decimal
	shipping ShippingPolicy
	currency string
}

func NewCalculator(taxRate decimal.Decimal, shipping ShippingPolicy, currency string) *Calculator {
	if shipping == nil {
		shipping = FreeShipping()
	}
	return &Calculator{
		taxRate:  taxRate,
		shipping: shipping,
		currency: currency,
	}
}

func (c *Calculator) Currency() string {
	return c.currency
}

// Quote prices lines against the prices the resolver returns right now.
//
// Lines whose variant or product cannot be resolved are left out of every sum and
// reported in both Summary.StaleLineIDs and the returned *apperrors.StaleReferenceError;
// the partial summary is still returned so callers can show it.
func (c *Calculator) Quote(ctx context.Context, resolver VariantResolver, lines []models.CartLine) (*Summary, error) {
	if len(lines) == 0 {
		return nil, apperrors.ErrEmptyCart
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.VariantID)
	}
	variants, err := resolver.VariantsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Lines:    make([]PricedLine, 0, len(lines)),
		Subtotal: decimal.Zero,
		Currency: c.currency,
	}
	for _, l := range lines {
		v, ok := variants[l.VariantID]
		if !ok || v.Product == nil {
			summary.StaleLineIDs = append(summary.StaleLineIDs, l.ID)
			continue
		}
		if l.Quantity < 1 {
			return nil, apperrors.Validation("line %s has quantity %d", l.ID, l.Quantity)
		}

		lineTotal := v.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		summary.Lines = append(summary.Lines, PricedLine{
			LineID:       l.ID,
			VariantID:    v.ID,
			ProductID:    v.ProductID,
			Title:        v.Product.Title,
			VariantTitle: v.Title,
			Quantity:     l.Quantity,
			UnitPrice:    v.Price,
			LineTotal:    lineTotal,
		})
		summary.Subtotal = summary.Subtotal.Add(lineTotal)
	}

	summary.Tax = summary.Subtotal.Mul(c.taxRate).Round(2)
	if len(summary.Lines) == 0 {
		summary.Shipping = decimal.Zero
	} else {
		summary.Shipping = c.shipping(summary.Subtotal)
	}
	summary.Total = summary.Subtotal.Add(summary.Tax).Add(summary.Shipping)

	if len(summary.StaleLineIDs) > 0 {
		return summary, &apperrors.StaleReferenceError{LineIDs: summary.StaleLineIDs}
	}
	return summary, nil
}
