package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/Skotchmaster/sweet_shop/pkg/db"
	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/repo"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/service"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/transport"
)

type harness struct {
	h    *OrderHTTP
	repo *repo.GormRepo
	user uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := pkgdb.OpenMemory(&models.Order{}, &models.OrderItem{}, &models.CartLine{}, &models.Product{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := &repo.GormRepo{DB: db}
	return &harness{
		h:    &OrderHTTP{Svc: &service.OrderService{Repo: r, Events: events.Discard{}}},
		repo: r,
		user: uuid.New(),
	}
}

func (hs *harness) cart(t *testing.T, stock, qty int) uuid.UUID {
	t.Helper()
	p := models.Product{ID: uuid.New(), Title: "Marzipan", Price: decimal.RequireFromString("3.00"), StockQuantity: stock}
	require.NoError(t, hs.repo.DB.Create(&p).Error)
	require.NoError(t, hs.repo.DB.Create(&models.CartLine{UserID: hs.user, ProductID: p.ID, Quantity: qty, Version: 1}).Error)
	return p.ID
}

func (hs *harness) do(handler echo.HandlerFunc, method, body string, verified bool, params ...string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	c.Set(session.CtxUserID, hs.user.String())
	c.Set(session.CtxVerified, verified)
	return rec, handler(c)
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "got %v", err)
	return he.Code
}

func TestCreateOrder_ThenReadAndCancel(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.cart(t, 10, 2)

	rec, err := hs.do(hs.h.CreateOrder, http.MethodPost, "", true)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, models.StatusNew, order.Status)

	rec, err = hs.do(hs.h.GetOrders, http.MethodGet, "", true)
	require.NoError(t, err)
	var list transport.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, 20, list.Size)

	rec, err = hs.do(hs.h.GetOrder, http.MethodGet, "", true, "id", order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, err = hs.do(hs.h.CancelOrder, http.MethodPost, "", true, "id", order.ID.String())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, models.StatusCancelled, order.Status)

	_, err = hs.do(hs.h.CancelOrder, http.MethodPost, "", true, "id", order.ID.String())
	assert.Equal(t, http.StatusConflict, httpCode(t, err))
}

func TestCreateOrder_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("out of stock", func(t *testing.T) {
		t.Parallel()
		hs := newHarness(t)
		id := hs.cart(t, 1, 2)

		rec, err := hs.do(hs.h.CreateOrder, http.MethodPost, "", true)
		require.NoError(t, err)
		require.Equal(t, http.StatusConflict, rec.Code)

		var body transport.CheckoutRejected
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, id, body.ProductID)
		assert.Equal(t, repo.ReasonOutOfStock, body.Reason)
		require.NotNil(t, body.Available)
		assert.Equal(t, 1, *body.Available)
	})

	t.Run("not verified", func(t *testing.T) {
		t.Parallel()
		hs := newHarness(t)
		hs.cart(t, 5, 1)
		_, err := hs.do(hs.h.CreateOrder, http.MethodPost, "", false)
		assert.Equal(t, http.StatusForbidden, httpCode(t, err))
	})

	t.Run("empty cart", func(t *testing.T) {
		t.Parallel()
		hs := newHarness(t)
		_, err := hs.do(hs.h.CreateOrder, http.MethodPost, "", true)
		assert.Equal(t, http.StatusBadRequest, httpCode(t, err))
	})
}

func TestUpdateStatus_Handler(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.cart(t, 5, 1)
	rec, err := hs.do(hs.h.CreateOrder, http.MethodPost, "", true)
	require.NoError(t, err)
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{name: "bad id", id: "x", body: `{"status":"paid"}`, want: http.StatusBadRequest},
		{name: "unknown status", id: order.ID.String(), body: `{"status":"lost"}`, want: http.StatusBadRequest},
		{name: "skip ahead", id: order.ID.String(), body: `{"status":"delivered"}`, want: http.StatusConflict},
		{name: "missing order", id: uuid.NewString(), body: `{"status":"paid"}`, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		_, err := hs.do(hs.h.UpdateStatus, http.MethodPatch, tt.body, true, "id", tt.id)
		assert.Equal(t, tt.want, httpCode(t, err), tt.name)
	}

	rec, err = hs.do(hs.h.UpdateStatus, http.MethodPatch, `{"status":"paid"}`, true, "id", order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
