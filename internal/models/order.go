package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodManual PaymentMethod = "manual"
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodMock   PaymentMethod = "mock"
)

type Address struct {
	Line1      string `json:"line1" form:"line1"`
	City       string `json:"city" form:"city"`
	Country    string `json:"country" form:"country"`
	PostalCode string `json:"postalCode" form:"postalCode"`
}

type Order struct {
	ID              string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	OrderNumber     string          `json:"order_number" gorm:"uniqueIndex;not null"`
	Status          OrderStatus     `json:"status" gorm:"not null;default:pending"`
	CartID          string          `json:"cart_id" gorm:"type:varchar(36);index"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email" gorm:"index"`
	ShippingAddress Address         `json:"shipping_address" gorm:"embedded;embeddedPrefix:ship_"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Tax             decimal.Decimal `json:"tax" gorm:"type:decimal(10,2);not null"`
	Shipping        decimal.Decimal `json:"shipping" gorm:"type:decimal(10,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentRef      *string         `json:"payment_ref,omitempty" gorm:"uniqueIndex"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem snapshots the variant at order time; later catalog edits never touch it.
type OrderItem struct {
	ID        string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	OrderID   string          `json:"-" gorm:"type:varchar(36);index;not null"`
	VariantID string          `json:"variant_id" gorm:"type:varchar(36);not null"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36)"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
}

// OrderNotification records a customer notification produced by the worker.
type OrderNotification struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	OrderID   string    `json:"order_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_notification_order_kind"`
	Kind      string    `json:"kind" gorm:"not null;uniqueIndex:idx_notification_order_kind"`
	Recipient string    `json:"recipient"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOrderNumber returns a human-readable, unique order number.
func NewOrderNumber(now time.Time, id string) string {
	short := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(short) > 10 {
		short = short[:10]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), short)
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = NewOrderNumber(time.Now(), o.ID)
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

func (n *OrderNotification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// All lists every model the schema migration manages.
func All() []interface{} {
	return []interface{}{
		&Product{},
		&Variant{},
		&Inventory{},
		&Cart{},
		&CartLine{},
		&Order{},
		&OrderItem{},
		&OrderNotification{},
	}
}
