package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/Skotchmaster/sweet_shop/pkg/db"
	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/repo"
)

type harness struct {
	svc    *OrderService
	repo   *repo.GormRepo
	events *events.Recorder
	buyer  session.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := pkgdb.OpenMemory(&models.Order{}, &models.OrderItem{}, &models.CartLine{}, &models.Product{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := &repo.GormRepo{DB: db}
	rec := &events.Recorder{}
	return &harness{
		svc:    &OrderService{Repo: r, Events: rec},
		repo:   r,
		events: rec,
		buyer:  session.Session{UserID: uuid.New(), Role: "user", Verified: true},
	}
}

func (h *harness) fillCart(t *testing.T, stock, qty int) uuid.UUID {
	t.Helper()
	p := models.Product{ID: uuid.New(), Title: "Nougat", Price: decimal.RequireFromString("4.00"), StockQuantity: stock}
	require.NoError(t, h.repo.DB.Create(&p).Error)
	require.NoError(t, h.repo.DB.Create(&models.CartLine{UserID: h.buyer.UserID, ProductID: p.ID, Quantity: qty, Version: 1}).Error)
	return p.ID
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fillCart(t, 5, 2)

	o, err := h.svc.Checkout(context.Background(), h.buyer)
	require.NoError(t, err)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("8")))

	rec := h.events.Snapshot()
	require.Len(t, rec, 1)
	assert.Equal(t, events.TopicOrder, rec[0].Topic)
	assert.Equal(t, EventOrderCreated, rec[0].EventType)
	assert.Equal(t, h.buyer.UserID.String(), rec[0].Key)
}

func TestCheckout_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not verified", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.buyer.Verified = false
		_, err := h.svc.Checkout(context.Background(), h.buyer)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("empty cart", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		_, err := h.svc.Checkout(context.Background(), h.buyer)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("stock ran out", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		id := h.fillCart(t, 1, 3)

		_, err := h.svc.Checkout(context.Background(), h.buyer)
		assert.ErrorIs(t, err, ErrConflict)
		var ce *CheckoutError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, id, ce.Line.ProductID)
		assert.Equal(t, repo.ReasonOutOfStock, ce.Line.Reason)
		assert.Equal(t, 1, ce.Line.Available)
		assert.Empty(t, h.events.Snapshot())
	})
}

func TestGetOrder_OwnerOrAdmin(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fillCart(t, 5, 1)
	o, err := h.svc.Checkout(ctx, h.buyer)
	require.NoError(t, err)

	_, err = h.svc.GetOrder(ctx, h.buyer, o.ID)
	require.NoError(t, err)

	_, err = h.svc.GetOrder(ctx, session.Session{UserID: uuid.New()}, o.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.svc.GetOrder(ctx, session.Session{UserID: uuid.New(), Role: "admin"}, o.ID)
	require.NoError(t, err)

	_, err = h.svc.GetOrder(ctx, h.buyer, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fillCart(t, 5, 1)
	o, err := h.svc.Checkout(ctx, h.buyer)
	require.NoError(t, err)

	_, err = h.svc.UpdateStatus(ctx, o.ID, "lost")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.svc.UpdateStatus(ctx, o.ID, models.StatusShipped)
	assert.ErrorIs(t, err, ErrConflict, "new cannot jump to shipped")

	paid, err := h.svc.UpdateStatus(ctx, o.ID, models.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)

	rec := h.events.Snapshot()
	last := rec[len(rec)-1]
	assert.Equal(t, EventOrderStatusChanged, last.EventType)
	assert.Equal(t, StatusChanged{OrderID: o.ID, UserID: h.buyer.UserID, From: models.StatusNew, To: models.StatusPaid}, last.Payload)

	_, err = h.svc.UpdateStatus(ctx, uuid.New(), models.StatusPaid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	product := h.fillCart(t, 5, 2)
	o, err := h.svc.Checkout(ctx, h.buyer)
	require.NoError(t, err)

	cancelled, err := h.svc.Cancel(ctx, h.buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	var p models.Product
	require.NoError(t, h.repo.DB.Where("id = ?", product).Take(&p).Error)
	assert.Equal(t, 5, p.StockQuantity)

	_, err = h.svc.Cancel(ctx, h.buyer, o.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to string
		want     bool
	}{
		{models.StatusNew, models.StatusPaid, true},
		{models.StatusNew, models.StatusCancelled, true},
		{models.StatusPaid, models.StatusShipped, true},
		{models.StatusShipped, models.StatusDelivered, true},
		{models.StatusShipped, models.StatusCancelled, false},
		{models.StatusDelivered, models.StatusNew, false},
		{models.StatusCancelled, models.StatusPaid, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
