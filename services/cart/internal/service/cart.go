package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/pkg/i18n"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/inventory"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/mirror"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/repo"
)

var (
	ErrValidation   = errors.New("validation")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrGatewayRead  = errors.New("gateway read failed")
	ErrGatewayWrite = errors.New("gateway write failed")
)

type Gateway interface {
	ReadCartLine(ctx context.Context, userID, productID uuid.UUID) (*models.CartLine, error)
	InsertCartLine(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartLine, error)
	UpdateCartLine(ctx context.Context, userID, productID uuid.UUID, quantity int, expectedVersion int64) (*models.CartLine, error)
	DeleteCartLine(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	CountCartLines(ctx context.Context, userID uuid.UUID) (int64, error)
	ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	ClearCart(ctx context.Context, userID uuid.UUID) (int64, error)
	ReadProductLimits(ctx context.Context, productID uuid.UUID) (*models.ProductLimits, error)
	ReadProductsLimits(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductLimits, error)
}

type CartService struct {
	Repo    Gateway
	Mirror  mirror.CountMirror
	Events  events.Publisher
	Denials *prometheus.CounterVec
}

func limitsOf(p *models.ProductLimits) inventory.Limits {
	return inventory.Limits{Stock: p.StockQuantity, VIPOnly: p.VIPOnly, MaxPurchase: p.MaxPurchase}
}

func requesterOf(s session.Session) inventory.Requester {
	return inventory.Requester{Verified: s.Verified, VIP: s.VIP}
}

// AddToCart adds delta units of a product to the user's cart line,
// creating the line when absent. Policy denials are reported through the
// result, not the error.
func (s *CartService) AddToCart(ctx context.Context, sess session.Session, productID uuid.UUID, delta int) (Result, error) {
	if productID == uuid.Nil {
		return Result{}, fmt.Errorf("product_id required: %w", ErrValidation)
	}
	if delta < 0 {
		return Result{}, fmt.Errorf("quantity must not be negative: %w", ErrValidation)
	}

	existing, err := s.readLine(ctx, sess.UserID, productID)
	if err != nil {
		return s.fail(ctx, ErrGatewayRead, err)
	}
	if delta == 0 {
		return Result{Line: existing, Feedback: Feedback{Kind: KindUnchanged}}, nil
	}

	product, err := s.readProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Line: existing}, err
		}
		return s.fail(ctx, ErrGatewayRead, err)
	}

	have := 0
	if existing != nil {
		have = existing.Quantity
	}

	decision := inventory.Evaluate(limitsOf(product), requesterOf(sess), delta, have)
	if !decision.Allowed {
		return s.deny(ctx, existing, decision), nil
	}

	line, err := s.write(ctx, sess.UserID, productID, existing, decision.NewQuantity)
	if err != nil {
		return s.fail(ctx, err, nil)
	}
	return s.succeed(ctx, line, i18n.CartAdded, "added"), nil
}

// SetQuantity stores target as the line's quantity, validating the whole
// target rather than the difference. A zero target deletes the line.
func (s *CartService) SetQuantity(ctx context.Context, sess session.Session, productID uuid.UUID, target int) (Result, error) {
	if productID == uuid.Nil {
		return Result{}, fmt.Errorf("product_id required: %w", ErrValidation)
	}
	if target < 0 {
		return Result{}, fmt.Errorf("quantity must not be negative: %w", ErrValidation)
	}

	existing, err := s.readLine(ctx, sess.UserID, productID)
	if err != nil {
		return s.fail(ctx, ErrGatewayRead, err)
	}

	if target == 0 {
		if existing == nil {
			return Result{Feedback: Feedback{Kind: KindUnchanged}}, nil
		}
		if _, err := s.Repo.DeleteCartLine(ctx, sess.UserID, productID); err != nil {
			return s.fail(ctx, ErrGatewayWrite, err)
		}
		removed := *existing
		removed.Quantity = 0
		return s.succeed(ctx, &removed, i18n.CartRemoved, "removed"), nil
	}

	if existing != nil && existing.Quantity == target {
		return Result{Line: existing, Feedback: Feedback{Kind: KindUnchanged}}, nil
	}

	product, err := s.readProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Line: existing}, err
		}
		return s.fail(ctx, ErrGatewayRead, err)
	}

	decision := inventory.Evaluate(limitsOf(product), requesterOf(sess), target, 0)
	if !decision.Allowed {
		return s.deny(ctx, existing, decision), nil
	}

	line, err := s.write(ctx, sess.UserID, productID, existing, decision.NewQuantity)
	if err != nil {
		return s.fail(ctx, err, nil)
	}
	return s.succeed(ctx, line, i18n.CartUpdated, "updated"), nil
}

// RemoveOne decrements a line by one unit and deletes it at zero.
func (s *CartService) RemoveOne(ctx context.Context, sess session.Session, productID uuid.UUID) (Result, error) {
	if productID == uuid.Nil {
		return Result{}, fmt.Errorf("product_id required: %w", ErrValidation)
	}

	existing, err := s.readLine(ctx, sess.UserID, productID)
	if err != nil {
		return s.fail(ctx, ErrGatewayRead, err)
	}
	if existing == nil {
		return Result{}, fmt.Errorf("cart line: %w", ErrNotFound)
	}

	if existing.Quantity <= 1 {
		if _, err := s.Repo.DeleteCartLine(ctx, sess.UserID, productID); err != nil {
			return s.fail(ctx, ErrGatewayWrite, err)
		}
		removed := *existing
		removed.Quantity = 0
		return s.succeed(ctx, &removed, i18n.CartRemoved, "removed"), nil
	}

	line, err := s.write(ctx, sess.UserID, productID, existing, existing.Quantity-1)
	if err != nil {
		return s.fail(ctx, err, nil)
	}
	return s.succeed(ctx, line, i18n.CartUpdated, "updated"), nil
}

func (s *CartService) GetCart(ctx context.Context, sess session.Session) (CartView, error) {
	lines, err := s.Repo.ListCart(ctx, sess.UserID)
	if err != nil {
		return CartView{}, fmt.Errorf("%w: %w", ErrGatewayRead, err)
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Repo.ReadProductsLimits(ctx, ids)
	if err != nil {
		return CartView{}, fmt.Errorf("%w: %w", ErrGatewayRead, err)
	}

	view := CartView{Items: make([]CartItem, 0, len(lines)), Count: int64(len(lines))}
	for _, l := range lines {
		item := CartItem{CartLine: l}
		if p, ok := products[l.ProductID]; ok {
			item.Title = p.Title
			item.Available = true
			item.MaxAdditional = inventory.MaxAdditional(limitsOf(&p), requesterOf(sess), l.Quantity)
		}
		view.Items = append(view.Items, item)
	}

	if s.Mirror != nil {
		if err := s.Mirror.Set(ctx, sess.UserID, view.Count); err != nil {
			logging.FromContext(ctx).Warn("cart_mirror_set_failed", "error", err)
		}
	}
	return view, nil
}

func (s *CartService) ClearCart(ctx context.Context, sess session.Session) (int64, error) {
	n, err := s.Repo.ClearCart(ctx, sess.UserID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGatewayWrite, err)
	}
	s.refreshCount(ctx, sess.UserID)
	s.publish(ctx, sess.UserID, "cart_cleared", map[string]any{"user_id": sess.UserID, "removed": n})
	return n, nil
}

// Count reads the line count from the gateway and refreshes the mirror.
// Lines can be removed outside this service (checkout clears them), so the
// mirror only answers when the gateway read fails.
func (s *CartService) Count(ctx context.Context, sess session.Session) (int64, error) {
	if n, fresh := s.refreshCount(ctx, sess.UserID); fresh {
		return n, nil
	}
	if s.Mirror != nil {
		n, ok, err := s.Mirror.Get(ctx, sess.UserID)
		if err != nil {
			logging.FromContext(ctx).Warn("cart_mirror_get_failed", "error", err)
		}
		if ok {
			return n, nil
		}
	}
	return 0, ErrGatewayRead
}

func (s *CartService) readLine(ctx context.Context, userID, productID uuid.UUID) (*models.CartLine, error) {
	line, err := s.Repo.ReadCartLine(ctx, userID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return line, err
}

func (s *CartService) readProduct(ctx context.Context, productID uuid.UUID) (*models.ProductLimits, error) {
	p, err := s.Repo.ReadProductLimits(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	return p, err
}

// write updates the line under its read version, or inserts it when there
// was none. Lost races surface as ErrConflict.
func (s *CartService) write(ctx context.Context, userID, productID uuid.UUID, existing *models.CartLine, quantity int) (*models.CartLine, error) {
	if existing != nil {
		line, err := s.Repo.UpdateCartLine(ctx, userID, productID, quantity, existing.Version)
		switch {
		case errors.Is(err, repo.ErrStaleVersion):
			return nil, fmt.Errorf("cart line changed concurrently: %w", ErrConflict)
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrGatewayWrite, err)
		}
		return line, nil
	}

	line, err := s.Repo.InsertCartLine(ctx, userID, productID, quantity)
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, fmt.Errorf("cart line created concurrently: %w", ErrConflict)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrGatewayWrite, err)
	}
	return line, nil
}

func (s *CartService) deny(ctx context.Context, existing *models.CartLine, d inventory.Decision) Result {
	p := i18n.FromContext(ctx)

	var msg string
	switch d.Reason {
	case inventory.ReasonNotVerified:
		msg = p.Sprintf(i18n.CartNotVerified)
	case inventory.ReasonVIPOnly:
		msg = p.Sprintf(i18n.CartVIPOnly)
	case inventory.ReasonMaxExceeded:
		msg = p.Sprintf(i18n.CartMaxExceeded, d.Limit)
	case inventory.ReasonOutOfStock:
		msg = p.Sprintf(i18n.CartOutOfStock, d.Limit)
	}

	if s.Denials != nil {
		s.Denials.WithLabelValues(string(d.Reason)).Inc()
	}
	logging.FromContext(ctx).Info("cart_change_denied", "reason", d.Reason, "limit", d.Limit)

	return Result{
		Line: existing,
		Feedback: Feedback{
			Kind:         KindDenied,
			Reason:       d.Reason,
			Limit:        d.Limit,
			Message:      msg,
			ExpiresAfter: FeedbackTTL,
		},
	}
}

// fail converts a gateway failure into the same result shape as a denial.
// kind is either a sentinel or an already wrapped error; cause is optional.
func (s *CartService) fail(ctx context.Context, kind error, cause error) (Result, error) {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}

	p := i18n.FromContext(ctx)
	fb := Feedback{Kind: KindError, Message: p.Sprintf(i18n.CartGenericFailure), ExpiresAfter: FeedbackTTL}
	if errors.Is(err, ErrConflict) {
		fb = Feedback{Kind: KindConflict, Message: p.Sprintf(i18n.CartConflict), ExpiresAfter: FeedbackTTL}
	}
	return Result{Feedback: fb}, err
}

func (s *CartService) succeed(ctx context.Context, line *models.CartLine, msgKey, action string) Result {
	n, fresh := s.refreshCount(ctx, line.UserID)

	s.publish(ctx, line.UserID, "cart_updated", map[string]any{
		"action":     action,
		"user_id":    line.UserID,
		"product_id": line.ProductID,
		"quantity":   line.Quantity,
		"count":      n,
	})

	res := Result{
		Count:      n,
		CountFresh: fresh,
		Feedback: Feedback{
			Kind:         KindSuccess,
			Message:      i18n.FromContext(ctx).Sprintf(msgKey),
			ExpiresAfter: FeedbackTTL,
		},
	}
	if line.Quantity > 0 {
		res.Line = line
	}
	return res
}

// refreshCount re-reads the line count from the gateway and stores it in
// the mirror. The write has already succeeded, so failures are only logged.
func (s *CartService) refreshCount(ctx context.Context, userID uuid.UUID) (int64, bool) {
	l := logging.FromContext(ctx)

	n, err := s.Repo.CountCartLines(ctx, userID)
	if err != nil {
		l.Warn("cart_count_refresh_failed", "error", err)
		return 0, false
	}
	if s.Mirror != nil {
		if err := s.Mirror.Set(ctx, userID, n); err != nil {
			l.Warn("cart_mirror_set_failed", "error", err)
		}
	}
	return n, true
}

func (s *CartService) publish(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, events.TopicCart, userID.String(), eventType, payload); err != nil {
		logging.FromContext(ctx).Warn("cart_event_publish_failed", "event_type", eventType, "error", err)
	}
}
