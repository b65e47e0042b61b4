package transport

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/sweet_shop/services/order/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/repo"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/service"
)

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ListResponse struct {
	Items []models.Order `json:"items"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Total int64          `json:"total"`
}

// CheckoutRejected tells the buyer which cart line has to change before
// the checkout can go through.
type CheckoutRejected struct {
	Message   string    `json:"message"`
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title,omitempty"`
	Reason    string    `json:"reason"`
	Available *int      `json:"available,omitempty"`
}

func NewCheckoutRejected(e *service.CheckoutError) CheckoutRejected {
	out := CheckoutRejected{
		Message:   "checkout rejected",
		ProductID: e.Line.ProductID,
		Title:     e.Line.Title,
		Reason:    e.Line.Reason,
	}
	if e.Line.Reason == repo.ReasonOutOfStock {
		n := e.Line.Available
		out.Available = &n
	}
	return out
}
