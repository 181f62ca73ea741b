package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Cart struct {
	ID        string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Lines     []CartLine `json:"lines" gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartLine struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	CartID    string    `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_variant"`
	VariantID string    `json:"variant_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_variant"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (l *CartLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
