package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID              string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Handle          string    `json:"handle" gorm:"uniqueIndex;not null"`
	Title           string    `json:"title" gorm:"not null"`
	Vendor          string    `json:"vendor"`
	DescriptionHTML string    `json:"description_html"`
	Images          []string  `json:"images" gorm:"serializer:json"`
	Variants        []Variant `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Variant struct {
	ID        string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36);index;not null"`
	Title     string          `json:"title"`
	SKU       *string         `json:"sku"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Inventory is tracked per product. Products without a row are not stock-limited.
type Inventory struct {
	ProductID string    `json:"product_id" gorm:"type:varchar(36);primaryKey"`
	Quantity  int       `json:"quantity" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (v *Variant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}
