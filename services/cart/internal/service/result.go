package service

import (
	"time"

	"github.com/Skotchmaster/sweet_shop/services/cart/internal/inventory"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/models"
)

// FeedbackTTL is how long clients keep a transient cart message on screen.
const FeedbackTTL = 2 * time.Second

type FeedbackKind string

const (
	KindSuccess   FeedbackKind = "success"
	KindUnchanged FeedbackKind = "unchanged"
	KindDenied    FeedbackKind = "denied"
	KindConflict  FeedbackKind = "conflict"
	KindError     FeedbackKind = "error"
)

type Feedback struct {
	Kind         FeedbackKind
	Reason       inventory.Reason
	Limit        int
	Message      string
	ExpiresAfter time.Duration
}

// Result is returned by every cart mutation, including failed ones, so
// callers render feedback the same way regardless of outcome.
type Result struct {
	Line       *models.CartLine
	Count      int64
	CountFresh bool
	Feedback   Feedback
}

func (r Result) Denied() bool  { return r.Feedback.Kind == KindDenied }
func (r Result) Changed() bool { return r.Feedback.Kind == KindSuccess }

type CartItem struct {
	models.CartLine
	Title         string `json:"title"`
	MaxAdditional int    `json:"max_additional"`
	Available     bool   `json:"available"`
}

type CartView struct {
	Items []CartItem `json:"items"`
	Count int64      `json:"count"`
}
