package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is keyed by (user, product); a zero quantity is never stored.
type CartLine struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"           json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"           json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity > 0"    json:"quantity"`
	Version   int64     `gorm:"not null;default:1"             json:"version"`
	UpdatedAt time.Time `gorm:"not null"                       json:"updated_at"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}

// ProductLimits is the read-only slice of a catalog product the cart
// needs to evaluate purchase rules.
type ProductLimits struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string    `json:"title"`
	StockQuantity int       `gorm:"column:stock_quantity" json:"stock_quantity"`
	VIPOnly       bool      `gorm:"column:vip_only"       json:"vip_only"`
	MaxPurchase   *int      `gorm:"column:max_purchase"   json:"max_purchase,omitempty"`
}

func (ProductLimits) TableName() string {
	return "products"
}
