package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/sweet_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/sweet_shop/pkg/middleware/metrics"
)

type Deps struct {
	NotifyHandler *NotifyHTTP
	JWTSecret     []byte
	AuthClient    middleware.Refresher
	Metrics       *metrics.Metrics
	Ready         func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics.Handler())
	}

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	n := e.Group("/notifications")
	n.GET("", d.NotifyHandler.List, authMW.RequireAuth)
	n.PATCH("/:id/read", d.NotifyHandler.MarkRead, authMW.RequireAuth)
	n.GET("/ws", d.NotifyHandler.Stream, authMW.RequireAuth)
	n.POST("", d.NotifyHandler.Send, authMW.RequireAdmin)
}
