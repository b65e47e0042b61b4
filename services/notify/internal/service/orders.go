package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/pkg/i18n"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/models"
)

const EventOrderStatusChanged = "order_status_changed"

// OrderStatusChanged is the payload the order service publishes on
// order_events when an administrator moves an order along.
type OrderStatusChanged struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
}

// HandleOrderEvent turns order status changes into an "order" notification
// for the buyer. Other event types are ignored. A buyer that no longer
// exists is logged and skipped so the consumer keeps moving. A failed insert
// is returned for redelivery and sends no email, so retries never repeat it.
func (s *NotifyService) HandleOrderEvent(ctx context.Context, env events.Envelope) error {
	if env.EventType != EventOrderStatusChanged {
		return nil
	}
	l := logging.FromContext(ctx).With("event_id", env.EventID)

	ev, err := events.UnwrapPayload[OrderStatusChanged](env.Payload)
	if err != nil {
		l.Warn("order_event_decode_failed", "error", err)
		return nil
	}

	u, err := s.Repo.ReadUser(ctx, ev.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("order_event_unknown_user", "user_id", ev.UserID)
			return nil
		}
		return fmt.Errorf("read user %s: %w", ev.UserID, err)
	}

	p := i18n.Printer(s.Language)
	ref := ev.OrderID.String()
	short := ref
	if len(short) > 8 {
		short = short[:8]
	}
	payload := Payload{
		Title:       defaultTitle(models.TypeOrder),
		Message:     p.Sprintf(i18n.OrderStatusChanged, short, ev.To),
		Type:        models.TypeOrder,
		ReferenceID: &ref,
	}

	res := s.fanout(ctx, []Recipient{RecipientFrom(*u)}, payload, Sender{}, true)
	if res[0].Failed() {
		return res[0].InsertErr
	}
	return nil
}
