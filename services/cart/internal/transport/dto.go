package transport

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/sweet_shop/services/cart/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/service"
)

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  *int      `json:"quantity"`
}

// Delta is the number of units to add; an omitted quantity adds one.
func (r AddToCartRequest) Delta() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type Feedback struct {
	Kind        string `json:"kind"`
	Reason      string `json:"reason,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Message     string `json:"message,omitempty"`
	ExpiresInMS int64  `json:"expires_in_ms,omitempty"`
}

type MutationResponse struct {
	Item     *models.CartLine `json:"item,omitempty"`
	Count    *int64           `json:"count,omitempty"`
	Feedback Feedback         `json:"feedback"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type ClearResponse struct {
	Removed int64 `json:"removed"`
}

func FromResult(res service.Result) MutationResponse {
	out := MutationResponse{
		Item: res.Line,
		Feedback: Feedback{
			Kind:        string(res.Feedback.Kind),
			Reason:      string(res.Feedback.Reason),
			Limit:       res.Feedback.Limit,
			Message:     res.Feedback.Message,
			ExpiresInMS: res.Feedback.ExpiresAfter.Milliseconds(),
		},
	}
	if res.CountFresh {
		n := res.Count
		out.Count = &n
	}
	return out
}
