package orders

import (
	"context"
	"sort"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/payments"
	"storefront/internal/pricing"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Sentinels that roll the order transaction back without reporting a failure.
var (
	errNothingToOrder = errors.New("cart is missing or empty")
	errLostRace       = errors.New("cart was cleared by a concurrent order")
	errDuplicateRef   = errors.New("payment reference already recorded")
)

type MaterializeRequest struct {
	CartID string
	// Status "paid" yields a paid order; anything else yields pending.
	Status        models.OrderStatus
	PaymentRef    string
	PaymentMethod models.PaymentMethod
	Customer      payments.Customer
}

// Materializer converts a cart into an order exactly once.
type Materializer struct {
	db         *gorm.DB
	orders     *Store
	carts      *cart.Store
	products   *catalog.Store
	calculator *pricing.Calculator
	publisher  events.Publisher
	locks      *KeyedMutex
	logger     *logger.Logger
}

func NewMaterializer(db *gorm.DB, calculator *pricing.Calculator, publisher events.Publisher, logger *logger.Logger) *Materializer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Materializer{
		db:         db,
		orders:     NewStore(db),
		carts:      cart.NewStore(db),
		products:   catalog.NewStore(db),
		calculator: calculator,
		publisher:  publisher,
		locks:      NewKeyedMutex(),
		logger:     logger,
	}
}

// Materialize creates the order for a cart and clears the cart in one transaction.
//
// It returns (nil, nil) when there is nothing to do: the cart is missing or empty,
// the payment reference already produced an order, or a concurrent call consumed
// the cart first. Stale cart lines abort with *apperrors.StaleReferenceError and
// insufficient stock with *apperrors.InsufficientStockError; in both cases
// nothing is written.
func (m *Materializer) Materialize(ctx context.Context, req MaterializeRequest) (*models.Order, error) {
	cartID := strings.TrimSpace(req.CartID)
	if cartID == "" {
		return nil, nil
	}

	unlock := m.locks.Lock(cartID)
	defer unlock()

	ref := strings.TrimSpace(req.PaymentRef)
	if ref != "" {
		existing, err := m.orders.ByPaymentRef(ctx, ref)
		if err == nil {
			m.logger.Info("Payment %s already recorded as order %s", ref, existing.OrderNumber)
			return nil, nil
		}
		if !apperrors.Is(err, apperrors.KindNotFound) {
			return nil, err
		}
	}

	var order *models.Order
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := m.carts.WithTx(tx)
		products := m.products.WithTx(tx)

		snapshot, err := carts.Get(ctx, cartID)
		if apperrors.Is(err, apperrors.KindNotFound) {
			return errNothingToOrder
		}
		if err != nil {
			return err
		}
		if snapshot.IsEmpty() {
			return errNothingToOrder
		}

		summary, err := m.calculator.Quote(ctx, products, snapshot.Lines)
		if err != nil {
			return err
		}

		if err := decrementStock(ctx, products, summary.Lines); err != nil {
			return err
		}

		order = newOrder(cartID, req, summary)
		if ref != "" {
			order.PaymentRef = &ref
		}
		if err := tx.Create(order).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateRef
			}
			return apperrors.Storage(errors.Wrap(err, "insert order"), "create order")
		}

		lineIDs := make([]string, 0, len(snapshot.Lines))
		for _, l := range snapshot.Lines {
			lineIDs = append(lineIDs, l.ID)
		}
		cleared, err := carts.ClearLines(ctx, cartID, lineIDs)
		if err != nil {
			return err
		}
		if !cleared {
			return errLostRace
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errNothingToOrder):
		m.logger.Debug("Cart %s has nothing to order", cartID)
		return nil, nil
	case errors.Is(err, errLostRace), errors.Is(err, errDuplicateRef):
		m.logger.Info("Cart %s already materialized: %v", cartID, err)
		return nil, nil
	default:
		return nil, err
	}

	m.logger.Infow("Order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"cart_id", cartID,
		"status", order.Status,
		"total", order.Total.StringFixed(2),
		"payment_method", order.PaymentMethod,
	)
	if err := m.publisher.Publish(ctx, events.OrderCreated(order)); err != nil {
		m.logger.Warn("Failed to publish order.created for %s: %v", order.ID, err)
	}
	return order, nil
}

func newOrder(cartID string, req MaterializeRequest, summary *pricing.Summary) *models.Order {
	status := models.OrderStatusPending
	if req.Status == models.OrderStatusPaid {
		status = models.OrderStatusPaid
	}
	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodManual
	}

	items := make([]models.OrderItem, 0, len(summary.Lines))
	for _, l := range summary.Lines {
		title := l.Title
		if l.VariantTitle != "" && l.VariantTitle != "Default Title" {
			title = l.Title + " - " + l.VariantTitle
		}
		items = append(items, models.OrderItem{
			VariantID: l.VariantID,
			ProductID: l.ProductID,
			Title:     title,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		})
	}

	return &models.Order{
		Status:          status,
		CartID:          cartID,
		CustomerName:    strings.TrimSpace(req.Customer.Name),
		CustomerEmail:   strings.TrimSpace(req.Customer.Email),
		ShippingAddress: req.Customer.Address,
		Items:           items,
		Subtotal:        summary.Subtotal,
		Tax:             summary.Tax,
		Shipping:        summary.Shipping,
		Total:           summary.Total,
		PaymentMethod:   method,
	}
}

// decrementStock takes stock per product in id order so concurrent orders lock
// inventory rows in the same sequence.
func decrementStock(ctx context.Context, products *catalog.Store, lines []pricing.PricedLine) error {
	perProduct := make(map[string]int)
	for _, l := range lines {
		perProduct[l.ProductID] += l.Quantity
	}
	ids := make([]string, 0, len(perProduct))
	for id := range perProduct {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := products.DecrementStock(ctx, id, perProduct[id]); err != nil {
			return err
		}
	}
	return nil
}
