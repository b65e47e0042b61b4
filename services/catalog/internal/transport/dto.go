package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Brand         string           `json:"brand"`
	Price         decimal.Decimal  `json:"price"`
	OldPrice      *decimal.Decimal `json:"old_price"`
	StockQuantity int              `json:"stock_quantity"`
	VIPOnly       bool             `json:"vip_only"`
	MaxPurchase   *int             `json:"max_purchase"`
	IsNew         bool             `json:"is_new"`
	CategoryID    *uuid.UUID       `json:"category_id"`
}

// PatchProductRequest only changes fields that are present. A zero
// max_purchase or old_price and a nil-uuid category_id clear the column.
type PatchProductRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Brand         *string          `json:"brand"`
	Price         *decimal.Decimal `json:"price"`
	OldPrice      *decimal.Decimal `json:"old_price"`
	StockQuantity *int             `json:"stock_quantity"`
	VIPOnly       *bool            `json:"vip_only"`
	MaxPurchase   *int             `json:"max_purchase"`
	IsNew         *bool            `json:"is_new"`
	CategoryID    *uuid.UUID       `json:"category_id"`
}

type Meta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func NewMeta(page, offset, limit int, total int64) Meta {
	return Meta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}

type BrowseResponse struct {
	Category string `json:"category"`
	Search   string `json:"search,omitempty"`
	Items    any    `json:"items"`
	Shown    int    `json:"shown"`
	Total    int    `json:"total"`
	HasMore  bool   `json:"has_more"`
}
