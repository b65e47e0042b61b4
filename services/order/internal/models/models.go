package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusNew       = "new"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

var transitions = map[string][]string{
	StatusNew:     {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

func KnownStatus(s string) bool {
	switch s {
	case StatusNew, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"              json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null"          json:"user_id"`
	Status    string          `gorm:"not null;default:new"              json:"status"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null"       json:"total"`
	Items     []OrderItem     `gorm:"foreignKey:OrderID"                json:"items,omitempty"`
	CreatedAt time.Time       `gorm:"index"                             json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"              json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"          json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"                json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `gorm:"not null;check:quantity > 0"       json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"       json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null"       json:"line_total"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// CartLine and Product are the slices of the cart and catalog tables that
// checkout reads and updates.
type CartLine struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Quantity  int
	Version   int64
	UpdatedAt time.Time
}

func (CartLine) TableName() string {
	return "cart_lines"
}

type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Title         string
	Price         decimal.Decimal `gorm:"type:numeric(12,2)"`
	StockQuantity int             `gorm:"column:stock_quantity"`
	VIPOnly       bool            `gorm:"column:vip_only"`
}

func (Product) TableName() string {
	return "products"
}
