package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxy_StripsPrefixAndForwards(t *testing.T) {
	t.Parallel()

	var gotPath, gotHost, gotProto string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHost = r.Header.Get("X-Forwarded-Host")
		gotProto = r.Header.Get("X-Forwarded-Proto")
		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(upstream.Close)

	p, err := newProxy("cart", upstream.URL, "/api/v1")
	require.NoError(t, err)

	e := echo.New()
	e.GET("/api/v1/cart/count", p)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/count", nil)
	req.Host = "shop.example"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "/cart/count", gotPath)
	assert.Equal(t, "shop.example", gotHost)
	assert.Equal(t, "http", gotProto)
}

func TestTrimPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, prefix, base, want string
	}{
		{"/api/v1/cart", "/api/v1", "", "/cart"},
		{"/api/v1", "/api/v1", "", "/"},
		{"/svc/api/v1/orders/1", "/svc/api/v1", "/svc", "/svc/orders/1"},
		{"/health/live", "/api/v1", "", "/health/live"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, trimPrefix(tt.path, tt.prefix, tt.base), tt.path)
	}
}

func TestNewProxy_UpstreamDown(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	p, err := newProxy("order", url, "/api/v1")
	require.NoError(t, err)

	e := echo.New()
	e.GET("/api/v1/orders", p)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRegister_PublicAndProtectedRoutes(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(upstream.Close)

	e := echo.New()
	require.NoError(t, Register(e, &Deps{
		AuthURL:    upstream.URL,
		CartURL:    upstream.URL,
		CatalogURL: upstream.URL,
		OrderURL:   upstream.URL,
		NotifyURL:  upstream.URL,
		JWTSecret:  []byte("s"),
	}))

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/catalog/products", http.StatusNoContent},
		{http.MethodGet, "/api/v1/catalog/products/abc", http.StatusNoContent},
		{http.MethodPost, "/api/v1/auth/login", http.StatusNoContent},
		{http.MethodGet, "/api/v1/cart", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/notifications", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/catalog/products", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}
}
