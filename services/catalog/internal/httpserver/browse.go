package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/paginator"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/service"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/transport"
)

// BrowseHTTP serves the "show more" product grid backed by one paginator
// per signed-in user.
type BrowseHTTP struct {
	Svc     *service.CatalogService
	Browser *paginator.Browser
}

func (h *BrowseHTTP) render(c echo.Context, sess session.Session, p *paginator.Paginator) error {
	categoryID, _ := categoryQuery(c)
	items := p.Displayed(categoryID)

	return c.JSON(http.StatusOK, transport.BrowseResponse{
		Category: paginator.Key(categoryID),
		Search:   p.Search(),
		Items:    h.Svc.Views(items, &sess),
		Shown:    len(items),
		Total:    p.Total(categoryID),
		HasMore:  p.HasMore(categoryID),
	})
}

// Browse loads the category (reusing the cached set) and applies ?q= as the
// search filter.
func (h *BrowseHTTP) Browse(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.browse")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	categoryID, err := categoryQuery(c)
	if err != nil {
		return err
	}

	p := h.Browser.For(sess.UserID)
	p.SetSearch(c.QueryParam("q"))
	if err := p.LoadCategory(ctx, categoryID); err != nil {
		l.Error("browse_load_error", "status", 500, "category", paginator.Key(categoryID), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load products")
	}
	return h.render(c, sess, p)
}

func (h *BrowseHTTP) More(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.browse_more")

	sess, err := session.FromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	categoryID, err := categoryQuery(c)
	if err != nil {
		return err
	}

	p := h.Browser.For(sess.UserID)
	if err := p.LoadMore(ctx, categoryID); err != nil {
		l.Error("browse_more_error", "status", 500, "category", paginator.Key(categoryID), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load products")
	}
	return h.render(c, sess, p)
}
