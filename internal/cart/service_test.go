package cart

import (
	"context"
	"sync"
	"testing"

	"storefront/internal/apperrors"
	"storefront/internal/catalog"
	"storefront/internal/database"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func setupCartTest(t *testing.T) (*Service, *models.Product) {
	t.Helper()
	db := database.NewTest(t)
	cat := catalog.NewStore(db.DB)

	product := &models.Product{
		Handle: "linen-shirt",
		Title:  "Linen Shirt",
		Variants: []models.Variant{
			{Title: "S", Price: decimal.RequireFromString("29.99")},
			{Title: "M", Price: decimal.RequireFromString("31.50")},
		},
	}
	require.NoError(t, cat.CreateProduct(context.Background(), product))

	return NewService(NewStore(db.DB), cat), product
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupCartTest(t)

	t.Run("empty id creates a cart", func(t *testing.T) {
		cart, created, err := svc.GetOrCreate(ctx, "")
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, cart.ID)
		assert.True(t, cart.IsEmpty())
	})

	t.Run("unknown id creates a fresh cart", func(t *testing.T) {
		cart, created, err := svc.GetOrCreate(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, "does-not-exist", cart.ID)
	})

	t.Run("known id is reused", func(t *testing.T) {
		first, _, err := svc.GetOrCreate(ctx, "")
		require.NoError(t, err)

		again, created, err := svc.GetOrCreate(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
	})
}

func TestAddLine(t *testing.T) {
	ctx := context.Background()
	svc, product := setupCartTest(t)
	small := product.Variants[0]

	cart, _, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)

	t.Run("appends a new line", func(t *testing.T) {
		updated, err := svc.AddLine(ctx, cart.ID, small.ID, 2)
		require.NoError(t, err)
		require.Len(t, updated.Lines, 1)
		assert.Equal(t, small.ID, updated.Lines[0].VariantID)
		assert.Equal(t, 2, updated.Lines[0].Quantity)
		assert.NotEmpty(t, updated.Lines[0].ID)
	})

	t.Run("increments an existing line", func(t *testing.T) {
		updated, err := svc.AddLine(ctx, cart.ID, small.ID, 3)
		require.NoError(t, err)
		require.Len(t, updated.Lines, 1)
		assert.Equal(t, 5, updated.Lines[0].Quantity)
	})

	t.Run("quantity below one is rejected", func(t *testing.T) {
		_, err := svc.AddLine(ctx, cart.ID, small.ID, 0)
		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	})

	t.Run("unknown variant is rejected", func(t *testing.T) {
		_, err := svc.AddLine(ctx, cart.ID, "missing-variant", 1)
		assert.True(t, apperrors.Is(err, apperrors.KindValidation))

		current, err := svc.Get(ctx, cart.ID)
		require.NoError(t, err)
		assert.Len(t, current.Lines, 1)
	})
}

func TestUpdateAndRemoveLine(t *testing.T) {
	ctx := context.Background()
	svc, product := setupCartTest(t)

	cart, _, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)
	cart, err = svc.AddLine(ctx, cart.ID, product.Variants[0].ID, 1)
	require.NoError(t, err)
	cart, err = svc.AddLine(ctx, cart.ID, product.Variants[1].ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	lineID := cart.Lines[0].ID

	t.Run("update sets quantity", func(t *testing.T) {
		updated, err := svc.UpdateLine(ctx, cart.ID, lineID, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, findLine(t, updated, lineID).Quantity)
	})

	t.Run("update clamps to one", func(t *testing.T) {
		updated, err := svc.UpdateLine(ctx, cart.ID, lineID, -3)
		require.NoError(t, err)
		assert.Equal(t, 1, findLine(t, updated, lineID).Quantity)
	})

	t.Run("update of unknown line is a no-op", func(t *testing.T) {
		updated, err := svc.UpdateLine(ctx, cart.ID, "nope", 9)
		require.NoError(t, err)
		assert.Len(t, updated.Lines, 2)
	})

	t.Run("remove drops the line", func(t *testing.T) {
		updated, err := svc.RemoveLine(ctx, cart.ID, lineID)
		require.NoError(t, err)
		require.Len(t, updated.Lines, 1)
		assert.NotEqual(t, lineID, updated.Lines[0].ID)
	})

	t.Run("remove of unknown line is a no-op", func(t *testing.T) {
		updated, err := svc.RemoveLine(ctx, cart.ID, lineID)
		require.NoError(t, err)
		assert.Len(t, updated.Lines, 1)
	})
}

func TestConcurrentAddLineIncrements(t *testing.T) {
	ctx := context.Background()
	svc, product := setupCartTest(t)
	variantID := product.Variants[0].ID

	cart, _, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)

	const n = 20
	var mu sync.Mutex
	var failures []error
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := svc.AddLine(gctx, cart.ID, variantID, 1)
			if err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.Empty(t, failures)

	updated, err := svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, n, updated.Lines[0].Quantity)
}

func findLine(t *testing.T, cart *models.Cart, lineID string) models.CartLine {
	t.Helper()
	for _, l := range cart.Lines {
		if l.ID == lineID {
			return l
		}
	}
	t.Fatalf("line %s not in cart", lineID)
	return models.CartLine{}
}
