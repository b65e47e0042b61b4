package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/sweet_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/sweet_shop/pkg/middleware/metrics"
)

type Deps struct {
	CartHandler *CartHTTP
	JWTSecret   []byte
	AuthClient  middleware.Refresher
	Metrics     *metrics.Metrics
	Ready       func() error
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

	cart := e.Group("/cart")
	cart.Use(authMW.RequireAuth)

	cart.GET("", d.CartHandler.GetCart)
	cart.GET("/count", d.CartHandler.Count)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PUT("/items/:product_id", d.CartHandler.SetQuantity)
	cart.DELETE("/items/:product_id/one", d.CartHandler.RemoveOne)
	cart.DELETE("", d.CartHandler.ClearCart)
}
