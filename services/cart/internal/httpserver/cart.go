package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/pkg/i18n"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/service"
	"github.com/Skotchmaster/sweet_shop/services/cart/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func requestContext(c echo.Context) context.Context {
	return i18n.WithLanguage(c.Request().Context(), c.Request().Header.Get("Accept-Language"))
}

func productParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	return id, nil
}

// respond renders every mutation outcome as a MutationResponse; only the
// status code differs.
func respond(c echo.Context, l *slog.Logger, event string, res service.Result, err error) error {
	body := transport.FromResult(res)

	switch {
	case err == nil && res.Denied():
		l.Info(event+"_denied", "status", http.StatusUnprocessableEntity, "reason", res.Feedback.Reason)
		return c.JSON(http.StatusUnprocessableEntity, body)
	case err == nil:
		return c.JSON(http.StatusOK, body)
	case errors.Is(err, service.ErrValidation):
		l.Warn(event+"_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event+"_error", "status", http.StatusNotFound, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	case errors.Is(err, service.ErrConflict):
		l.Warn(event+"_conflict", "status", http.StatusConflict, "error", err)
		return c.JSON(http.StatusConflict, body)
	default:
		l.Error(event+"_error", "status", http.StatusServiceUnavailable, "error", err)
		return c.JSON(http.StatusServiceUnavailable, body)
	}
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := requestContext(c)
	l := logging.FromContext(ctx).With("handler", "cart.get")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	view, err := h.Svc.GetCart(ctx, sess)
	if err != nil {
		l.Error("get_cart_error", "status", http.StatusServiceUnavailable, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, i18n.FromContext(ctx).Sprintf(i18n.CartGenericFailure))
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Count(c echo.Context) error {
	ctx := requestContext(c)
	l := logging.FromContext(ctx).With("handler", "cart.count")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	n, err := h.Svc.Count(ctx, sess)
	if err != nil {
		l.Error("cart_count_error", "status", http.StatusServiceUnavailable, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cart count unavailable")
	}
	return c.JSON(http.StatusOK, transport.CountResponse{Count: n})
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := requestContext(c)
	l := logging.FromContext(ctx).With("handler", "cart.add")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.AddToCart(ctx, sess, req.ProductID, req.Delta())
	return respond(c, l, "add_to_cart", res, err)
}

func (h *CartHTTP) SetQuantity(c echo.Context) error {
	ctx := requestContext(c)
	l := logging.FromContext(ctx).With("handler", "cart.set_quantity")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	productID, err := productParam(c)
	if err != nil {
		return err
	}

	var req transport.SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_quantity_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.SetQuantity(ctx, sess, productID, req.Quantity)
	return respond(c, l, "set_quantity", res, err)
}

func (h *CartHTTP) RemoveOne(c echo.Context) error {
	ctx := requestContext(c)
	l := logging.FromContext(ctx).With("handler", "cart.remove_one")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	productID, err := productParam(c)
	if err != nil {
		return err
	}

	res, err := h.Svc.RemoveOne(ctx, sess, productID)
	if errors.Is(err, service.ErrNotFound) {
		l.Warn("remove_one_not_found", "status", http.StatusNotFound)
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}
	return respond(c, l, "remove_one", res, err)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := requestContext(c)
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	n, err := h.Svc.ClearCart(ctx, sess)
	if err != nil {
		l.Error("clear_cart_error", "status", http.StatusServiceUnavailable, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, i18n.FromContext(ctx).Sprintf(i18n.CartGenericFailure))
	}

	l.Info("cart_cleared", "removed", n)
	return c.JSON(http.StatusOK, transport.ClearResponse{Removed: n})
}
