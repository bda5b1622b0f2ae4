package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name        string          `gorm:"not null;index" json:"name"`
	Description string          `gorm:"not null" json:"description"`
	Category    string          `gorm:"not null;index" json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;check:chk_products_price,price >= 0" json:"price"`
	Stock       int             `gorm:"not null;check:chk_products_stock,stock >= 0" json:"stock"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasStock reports whether quantity units can be placed against the current stock figure.
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}
