package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/service"
	"github.com/Skotchmaster/sweet_shop/services/order/internal/transport"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func orderParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	order, err := h.Svc.Checkout(ctx, sess)
	if err != nil {
		var ce *service.CheckoutError
		switch {
		case errors.As(err, &ce):
			l.Info("create_order_rejected", "status", http.StatusConflict, "reason", ce.Line.Reason, "product_id", ce.Line.ProductID)
			return c.JSON(http.StatusConflict, transport.NewCheckoutRejected(ce))
		case errors.Is(err, service.ErrForbidden):
			l.Warn("create_order_error", "status", http.StatusForbidden, "reason", "not verified")
			return echo.NewHTTPError(http.StatusForbidden, "account not verified")
		case errors.Is(err, service.ErrValidation):
			l.Warn("create_order_error", "status", http.StatusBadRequest, "reason", "empty cart", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
		default:
			l.Error("create_order_error", "status", http.StatusInternalServerError, "reason", "internal error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("create_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_orders")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}

	total, orders, err := h.Svc.ListOrders(ctx, sess.UserID, size, (page-1)*size)
	if err != nil {
		l.Error("get_orders_error", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, transport.ListResponse{Items: orders, Page: page, Size: size, Total: total})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := orderParam(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, sess, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("get_order_error", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := orderParam(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.Cancel(ctx, sess, id)
	return h.statusResult(c, l, "cancel_order", order, err)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := orderParam(c)
	if err != nil {
		return err
	}
	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_status_error", "status", http.StatusBadRequest, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	return h.statusResult(c, l, "update_status", order, err)
}

func (h *OrderHTTP) statusResult(c echo.Context, l *slog.Logger, event string, order *models.Order, err error) error {
	switch {
	case err == nil:
		l.Info(event + "_success")
		return c.JSON(http.StatusOK, order)
	case errors.Is(err, service.ErrValidation):
		l.Warn(event+"_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrConflict):
		l.Warn(event+"_error", "status", http.StatusConflict, "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event+"_error", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
