package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/repo"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

type Store interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, vip bool) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) (int64, []models.Order, error)
	Transition(ctx context.Context, id uuid.UUID, from, to string) (*models.Order, error)
}

// CheckoutError carries the cart line that blocked a checkout.
type CheckoutError struct {
	Line *repo.LineError
}

func (e *CheckoutError) Error() string { return e.Line.Error() }

func (e *CheckoutError) Unwrap() error { return ErrConflict }

type StatusChanged struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
}

type OrderService struct {
	Repo      Store
	Events    events.Publisher
	Checkouts *prometheus.CounterVec
}

func (s *OrderService) Checkout(ctx context.Context, sess session.Session) (*models.Order, error) {
	if !sess.Verified {
		s.count("not_verified")
		return nil, fmt.Errorf("account not verified: %w", ErrForbidden)
	}

	order, err := s.Repo.PlaceOrder(ctx, sess.UserID, sess.VIP)
	if err != nil {
		var le *repo.LineError
		switch {
		case errors.Is(err, repo.ErrEmptyCart):
			s.count("empty")
			return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
		case errors.As(err, &le):
			s.count("rejected")
			return nil, &CheckoutError{Line: le}
		}
		s.count("error")
		return nil, err
	}

	s.count("placed")
	logging.FromContext(ctx).Info("order_placed", "order_id", order.ID, "total", order.Total.String(), "items", len(order.Items))
	s.publish(ctx, order.UserID, EventOrderCreated, map[string]any{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.Total,
		"items":    len(order.Items),
	})
	return order, nil
}

// GetOrder returns the order to its owner or an administrator; anyone else
// gets ErrNotFound.
func (s *OrderService) GetOrder(ctx context.Context, sess session.Session, id uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if o.UserID != sess.UserID && !sess.IsAdmin() {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, userID, limit, offset)
}

// UpdateStatus is the administrator's move along the status table.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*models.Order, error) {
	if !models.KnownStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.transition(ctx, o, to)
}

// Cancel lets the buyer cancel an order that has not been paid yet.
func (s *OrderService) Cancel(ctx context.Context, sess session.Session, id uuid.UUID) (*models.Order, error) {
	o, err := s.GetOrder(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if o.Status != models.StatusNew && !sess.IsAdmin() {
		return nil, fmt.Errorf("%w: order is %s", ErrConflict, o.Status)
	}
	return s.transition(ctx, o, models.StatusCancelled)
}

func (s *OrderService) transition(ctx context.Context, o *models.Order, to string) (*models.Order, error) {
	from := o.Status
	if !models.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s not allowed", ErrConflict, from, to)
	}

	updated, err := s.Repo.Transition(ctx, o.ID, from, to)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order changed concurrently", ErrConflict)
		}
		return nil, err
	}

	logging.FromContext(ctx).Info("order_status_changed", "order_id", o.ID, "from", from, "to", to)
	s.publish(ctx, o.UserID, EventOrderStatusChanged, StatusChanged{OrderID: o.ID, UserID: o.UserID, From: from, To: to})
	return updated, nil
}

func (s *OrderService) count(outcome string) {
	if s.Checkouts != nil {
		s.Checkouts.WithLabelValues(outcome).Inc()
	}
}

func (s *OrderService) publish(ctx context.Context, userID uuid.UUID, eventType string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, events.TopicOrder, userID.String(), eventType, payload); err != nil {
		logging.FromContext(ctx).Warn("order_event_publish_failed", "event_type", eventType, "error", err)
	}
}
