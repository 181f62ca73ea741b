package pricing

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/apperrors"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	variants map[string]models.Variant
	err      error
}

func (f *fakeResolver) VariantsByID(ctx context.Context, ids []string) (map[string]models.Variant, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]models.Variant{}
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newResolver() *fakeResolver {
	shirt := &models.Product{ID: "p1", Title: "Linen Shirt"}
	return &fakeResolver{variants: map[string]models.Variant{
		"v1": {ID: "v1", ProductID: "p1", Title: "S", Price: dec("29.99"), Product: shirt},
		"v2": {ID: "v2", ProductID: "p1", Title: "M", Price: dec("10.00"), Product: shirt},
	}}
}

func newCalc() *Calculator {
	return NewCalculator(dec("0.10"), FlatRateShipping(dec("5.00"), dec("100.00")), "USD")
}

func TestQuoteTotals(t *testing.T) {
	calc := newCalc()
	lines := []models.CartLine{{ID: "l1", VariantID: "v1", Quantity: 2}}

	summary, err := calc.Quote(context.Background(), newResolver(), lines)
	require.NoError(t, err)

	assert.Equal(t, "59.98", summary.Subtotal.StringFixed(2))
	assert.Equal(t, "6.00", summary.Tax.StringFixed(2))
	assert.Equal(t, "5.00", summary.Shipping.StringFixed(2))
	assert.Equal(t, "70.98", summary.Total.StringFixed(2))
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, "Linen Shirt", summary.Lines[0].Title)
	assert.Equal(t, "USD", summary.Currency)
}

func TestQuoteFreeShippingThreshold(t *testing.T) {
	calc := newCalc()
	lines := []models.CartLine{{ID: "l1", VariantID: "v2", Quantity: 10}}

	summary, err := calc.Quote(context.Background(), newResolver(), lines)
	require.NoError(t, err)
	assert.True(t, summary.Shipping.IsZero())
	assert.Equal(t, "110.00", summary.Total.StringFixed(2))
}

func TestQuoteUsesCurrentPrice(t *testing.T) {
	calc := newCalc()
	resolver := newResolver()
	lines := []models.CartLine{{ID: "l1", VariantID: "v1", Quantity: 2}}

	before, err := calc.Quote(context.Background(), resolver, lines)
	require.NoError(t, err)

	v := resolver.variants["v1"]
	v.Price = dec("19.99")
	resolver.variants["v1"] = v

	after, err := calc.Quote(context.Background(), resolver, lines)
	require.NoError(t, err)
	assert.Equal(t, "59.98", before.Subtotal.StringFixed(2))
	assert.Equal(t, "39.98", after.Subtotal.StringFixed(2))
}

func TestQuoteEmptyCart(t *testing.T) {
	_, err := newCalc().Quote(context.Background(), newResolver(), nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
}

func TestQuoteStaleLine(t *testing.T) {
	lines := []models.CartLine{
		{ID: "l1", VariantID: "v1", Quantity: 1},
		{ID: "l2", VariantID: "deleted", Quantity: 4},
	}

	summary, err := newCalc().Quote(context.Background(), newResolver(), lines)

	var stale *apperrors.StaleReferenceError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, []string{"l2"}, stale.LineIDs)
	require.NotNil(t, summary)
	assert.Equal(t, []string{"l2"}, summary.StaleLineIDs)
	assert.Len(t, summary.Lines, 1)
	assert.Equal(t, "29.99", summary.Subtotal.StringFixed(2))
}

func TestQuoteOnlyStaleLines(t *testing.T) {
	lines := []models.CartLine{{ID: "l1", VariantID: "gone", Quantity: 1}}

	summary, err := newCalc().Quote(context.Background(), newResolver(), lines)

	var stale *apperrors.StaleReferenceError
	require.True(t, errors.As(err, &stale))
	assert.True(t, summary.Total.IsZero())
}

func TestQuoteVariantWithoutProductIsStale(t *testing.T) {
	resolver := &fakeResolver{variants: map[string]models.Variant{
		"v1": {ID: "v1", ProductID: "gone", Price: dec("1.00")},
	}}
	_, err := newCalc().Quote(context.Background(), resolver, []models.CartLine{{ID: "l1", VariantID: "v1", Quantity: 1}})

	var stale *apperrors.StaleReferenceError
	assert.True(t, errors.As(err, &stale))
}

func TestQuoteResolverFailure(t *testing.T) {
	boom := apperrors.Storage(errors.New("db down"), "resolve variants")
	_, err := newCalc().Quote(context.Background(), &fakeResolver{err: boom}, []models.CartLine{{ID: "l1", VariantID: "v1", Quantity: 1}})
	assert.True(t, apperrors.Is(err, apperrors.KindStorage))
}

func TestFlatRateShipping(t *testing.T) {
	policy := FlatRateShipping(dec("5"), dec("0"))
	assert.Equal(t, "5", policy(dec("1000")).String())

	policy = FlatRateShipping(dec("5"), dec("50"))
	assert.True(t, policy(dec("50")).IsZero())
	assert.Equal(t, "5", policy(dec("49.99")).String())
}
