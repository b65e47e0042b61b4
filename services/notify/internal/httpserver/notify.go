package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/pkg/i18n"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/hub"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/service"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/transport"
)

type NotifyHTTP struct {
	Svc *service.NotifyService
	Hub *hub.Hub
}

func (h *NotifyHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notify.list")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	unreadOnly := c.QueryParam("unread") == "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	items, unread, err := h.Svc.List(ctx, sess.UserID, unreadOnly, limit)
	if err != nil {
		l.Error("list_notifications_error", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load notifications")
	}
	return c.JSON(http.StatusOK, transport.ListResponse{Items: items, Unread: unread})
}

func (h *NotifyHTTP) MarkRead(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notify.mark_read")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.Svc.MarkRead(ctx, sess.UserID, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "notification not found")
		}
		l.Error("mark_read_error", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not update notification")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotifyHTTP) Stream(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "notify.stream")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.Hub.Serve(c.Response(), c.Request(), sess.UserID); err != nil {
		l.Warn("ws_upgrade_failed", "error", err)
	}
	return nil
}

// Send lets an administrator notify one user or everybody. Individual
// delivery failures are reported in the body; the request itself succeeds.
func (h *NotifyHTTP) Send(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notify.send")
	p := i18n.Printer(c.Request().Header.Get("Accept-Language"))

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.SendRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("send_notification_error", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.All == (req.UserID != nil) {
		return echo.NewHTTPError(http.StatusBadRequest, "set exactly one of user_id or all")
	}

	adminID := sess.UserID
	sender := service.Sender{ID: &adminID, Name: sess.Name}

	var results []service.RecipientResult
	if req.All {
		results, err = h.Svc.NotifyAll(ctx, req.Payload(), sender)
	} else {
		var res service.RecipientResult
		res, err = h.Svc.NotifyUser(ctx, *req.UserID, req.Payload(), sender)
		results = []service.RecipientResult{res}
	}
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	case err != nil:
		l.Error("send_notification_error", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not send notification")
	}

	sum := service.Summarize(results)
	msg := p.Sprintf(i18n.NotifySent, sum.Sent)
	if sum.PartialFanoutFailure() {
		msg = p.Sprintf(i18n.NotifyPartial, sum.Sent, sum.Failed)
	}
	l.Info("notification_sent", "status", http.StatusOK, "recipients", sum.Recipients, "failed", sum.Failed)
	return c.JSON(http.StatusOK, transport.NewSendResponse(msg, results))
}
