package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/sweet_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/sweet_shop/pkg/middleware/metrics"
)

type Deps struct {
	CatalogHandler *CatalogHTTP
	BrowseHandler  *BrowseHTTP
	JWTSecret      []byte
	AuthClient     middleware.Refresher
	Metrics        *metrics.Metrics
	Ready          func() error
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

	catalog := e.Group("/catalog")
	catalog.GET("/categories", d.CatalogHandler.GetCategories)

	products := catalog.Group("/products", authMW.Optional)
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)

	admin := catalog.Group("/products", authMW.RequireAdmin)
	admin.POST("", d.CatalogHandler.CreateProduct)
	admin.PATCH("/:id", d.CatalogHandler.PatchProduct)
	admin.DELETE("/:id", d.CatalogHandler.DeleteProduct)
	admin.PUT("/:id/image", d.CatalogHandler.UploadImage)

	browse := catalog.Group("/browse", authMW.RequireAuth)
	browse.GET("", d.BrowseHandler.Browse)
	browse.POST("/more", d.BrowseHandler.More)
}
