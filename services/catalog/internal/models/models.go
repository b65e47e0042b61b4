package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Title       string    `gorm:"not null"              json:"title"`
	Description string    `json:"description"`
	IconPath    string    `json:"icon_path,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

type Product struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"            json:"id"`
	Title         string           `gorm:"not null"                        json:"title"`
	Description   string           `json:"description"`
	Brand         string           `gorm:"index"                           json:"brand"`
	Price         decimal.Decimal  `gorm:"type:numeric(12,2);not null"     json:"price"`
	OldPrice      *decimal.Decimal `gorm:"type:numeric(12,2)"              json:"old_price,omitempty"`
	StockQuantity int              `gorm:"not null;default:0"              json:"stock_quantity"`
	VIPOnly       bool             `gorm:"column:vip_only;not null"        json:"vip_only"`
	MaxPurchase   *int             `json:"max_purchase,omitempty"`
	IsNew         bool             `json:"is_new"`
	IsDiscounted  bool             `json:"is_discounted"`
	CategoryID    *uuid.UUID       `gorm:"type:uuid;index"                 json:"category_id,omitempty"`
	ImagePath     string           `json:"image_path,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
