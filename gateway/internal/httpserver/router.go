package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/gateway/internal/middleware"
	"github.com/Skotchmaster/sweet_shop/pkg/tokens"
)

type Deps struct {
	AuthURL    string
	CartURL    string
	CatalogURL string
	OrderURL   string
	NotifyURL  string

	JWTSecret []byte
}

var writeMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authProxy, err := newProxy("auth", d.AuthURL, "/api/v1/auth")
	if err != nil {
		return err
	}
	catalogProxy, err := newProxy("catalog", d.CatalogURL, "/api/v1")
	if err != nil {
		return err
	}
	orderProxy, err := newProxy("order", d.OrderURL, "/api/v1")
	if err != nil {
		return err
	}
	cartProxy, err := newProxy("cart", d.CartURL, "/api/v1")
	if err != nil {
		return err
	}
	notifyProxy, err := newProxy("notify", d.NotifyURL, "/api/v1")
	if err != nil {
		return err
	}

	e.Any("/api/v1/auth/*", authProxy)
	// Product reads are public; the catalog service decides what an
	// anonymous caller may see.
	e.GET("/api/v1/catalog/categories", catalogProxy)
	e.GET("/api/v1/catalog/products", catalogProxy)
	e.GET("/api/v1/catalog/products/*", catalogProxy)

	api := e.Group("/api/v1")
	api.Use(middleware.Middleware(d.JWTSecret))

	api.GET("/catalog/browse", catalogProxy)
	api.POST("/catalog/browse/more", catalogProxy)
	api.Match(writeMethods, "/catalog/products", catalogProxy, middleware.RequireRole([]string{tokens.RoleAdmin}))
	api.Match(writeMethods, "/catalog/products/*", catalogProxy, middleware.RequireRole([]string{tokens.RoleAdmin}))
	api.Any("/cart", cartProxy)
	api.Any("/cart/*", cartProxy)
	api.Any("/orders", orderProxy)
	api.Any("/orders/*", orderProxy)
	api.Any("/notifications", notifyProxy)
	api.Any("/notifications/*", notifyProxy)

	return nil
}
