package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/models"
)

// ProductView is a product as shown to one viewer. Prices are only
// included for verified users and admins.
type ProductView struct {
	ID            uuid.UUID        `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Brand         string           `json:"brand"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	OldPrice      *decimal.Decimal `json:"old_price,omitempty"`
	PriceHidden   bool             `json:"price_hidden"`
	StockQuantity int              `json:"stock_quantity"`
	InStock       bool             `json:"in_stock"`
	VIPOnly       bool             `json:"vip_only"`
	MaxPurchase   *int             `json:"max_purchase,omitempty"`
	IsNew         bool             `json:"is_new"`
	IsDiscounted  bool             `json:"is_discounted"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	ImageURL      string           `json:"image_url,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

func canSeePrices(viewer *session.Session) bool {
	return viewer != nil && (viewer.Verified || viewer.IsAdmin())
}

func (s *CatalogService) view(p models.Product, viewer *session.Session) ProductView {
	v := ProductView{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		Brand:         p.Brand,
		StockQuantity: p.StockQuantity,
		InStock:       p.StockQuantity > 0,
		VIPOnly:       p.VIPOnly,
		MaxPurchase:   p.MaxPurchase,
		IsNew:         p.IsNew,
		IsDiscounted:  p.IsDiscounted,
		CategoryID:    p.CategoryID,
		CreatedAt:     p.CreatedAt,
	}
	if canSeePrices(viewer) {
		price := p.Price
		v.Price = &price
		v.OldPrice = p.OldPrice
	} else {
		v.PriceHidden = true
	}
	if p.ImagePath != "" && s.Images != nil {
		v.ImageURL = s.Images.PublicURL(p.ImagePath)
	}
	return v
}

func (s *CatalogService) views(items []models.Product, viewer *session.Session) []ProductView {
	out := make([]ProductView, 0, len(items))
	for _, p := range items {
		out = append(out, s.view(p, viewer))
	}
	return out
}
