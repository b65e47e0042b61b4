package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/paginator"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/repo"
	"github.com/Skotchmaster/sweet_shop/services/catalog/internal/service"
)

type harness struct {
	catalog *CatalogHTTP
	browse  *BrowseHTTP
	repo    *repo.GormRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := pkgdb.OpenMemory(&models.Category{}, &models.Product{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := &repo.GormRepo{DB: db}
	browser := paginator.NewBrowser(r, paginator.DefaultPageSize)
	svc := &service.CatalogService{Repo: r, Local: browser}
	return &harness{
		catalog: &CatalogHTTP{Svc: svc},
		browse:  &BrowseHTTP{Svc: svc, Browser: browser},
		repo:    r,
	}
}

func (hs *harness) seed(t *testing.T, n int, categoryID *uuid.UUID) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := models.Product{ID: uuid.New(), Title: fmt.Sprintf("Candy %d", i), Price: decimal.NewFromInt(2), StockQuantity: 5, CategoryID: categoryID}
		require.NoError(t, hs.repo.DB.Create(&p).Error)
	}
}

type reqOpts struct {
	method, target, body, contentType string
	sess                              *session.Session
	params                            map[string]string
}

func call(h echo.HandlerFunc, o reqOpts) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	if o.method == "" {
		o.method = http.MethodGet
	}
	if o.target == "" {
		o.target = "/"
	}
	req := httptest.NewRequest(o.method, o.target, strings.NewReader(o.body))
	if o.contentType == "" {
		o.contentType = echo.MIMEApplicationJSON
	}
	req.Header.Set(echo.HeaderContentType, o.contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range o.params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	if o.sess != nil {
		c.Set(session.CtxUserID, o.sess.UserID.String())
		c.Set(session.CtxVerified, o.sess.Verified)
		c.Set(session.CtxRole, o.sess.Role)
	}
	return rec, h(c)
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	return he.Code
}

func TestGetProduct_PriceVisibility(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.seed(t, 1, nil)
	var p models.Product
	require.NoError(t, hs.repo.DB.First(&p).Error)
	params := map[string]string{"id": p.ID.String()}

	rec, err := call(hs.catalog.GetProduct, reqOpts{params: params})
	require.NoError(t, err)
	var anon map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anon))
	assert.NotContains(t, anon, "price")
	assert.Equal(t, true, anon["price_hidden"])

	rec, err = call(hs.catalog.GetProduct, reqOpts{params: params, sess: &session.Session{UserID: uuid.New(), Verified: true}})
	require.NoError(t, err)
	var verified map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verified))
	assert.Equal(t, "2", verified["price"])

	_, err = call(hs.catalog.GetProduct, reqOpts{params: map[string]string{"id": uuid.NewString()}})
	assert.Equal(t, http.StatusNotFound, httpCode(t, err))

	_, err = call(hs.catalog.GetProduct, reqOpts{params: map[string]string{"id": "12"}})
	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestGetProducts_Meta(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.seed(t, 5, nil)

	rec, err := call(hs.catalog.GetProducts, reqOpts{target: "/?page=2&size=2"})
	require.NoError(t, err)

	var out struct {
		Data []map[string]any `json:"data"`
		Meta map[string]any   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Data, 2)
	assert.EqualValues(t, 5, out.Meta["total"])
	assert.EqualValues(t, 3, out.Meta["total_pages"])
	assert.Equal(t, true, out.Meta["has_next"])
	assert.Equal(t, true, out.Meta["has_prev"])
}

func TestSearchProducts_Unavailable(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	_, err := call(hs.catalog.SearchProducts, reqOpts{target: "/?q=gum"})
	assert.Equal(t, http.StatusServiceUnavailable, httpCode(t, err))

	_, err = call(hs.catalog.SearchProducts, reqOpts{target: "/"})
	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestBrowse_ShowMore(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	cat := uuid.New()
	hs.seed(t, 8, &cat)
	hs.seed(t, 2, nil)
	sess := &session.Session{UserID: uuid.New(), Verified: true}
	target := "/?category=" + cat.String()

	rec, err := call(hs.browse.Browse, reqOpts{target: target, sess: sess})
	require.NoError(t, err)

	var out struct {
		Category string           `json:"category"`
		Items    []map[string]any `json:"items"`
		Shown    int              `json:"shown"`
		Total    int              `json:"total"`
		HasMore  bool             `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, cat.String(), out.Category)
	assert.Equal(t, 6, out.Shown)
	assert.Equal(t, 8, out.Total)
	assert.True(t, out.HasMore)

	rec, err = call(hs.browse.More, reqOpts{method: http.MethodPost, target: target, sess: sess})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 8, out.Shown)
	assert.False(t, out.HasMore)

	rec, err = call(hs.browse.Browse, reqOpts{target: "/?q=candy%207", sess: sess})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "all", out.Category)
	assert.Equal(t, 1, out.Shown)

	_, err = call(hs.browse.Browse, reqOpts{target: "/?category=bad", sess: sess})
	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))

	_, err = call(hs.browse.Browse, reqOpts{target: target})
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
}

func TestCreateProduct_Validation(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)

	rec, err := call(hs.catalog.CreateProduct, reqOpts{method: http.MethodPost, body: `{"title":"Praline","price":"3.10","stock_quantity":4}`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	_, err = call(hs.catalog.CreateProduct, reqOpts{method: http.MethodPost, body: `{"title":"","price":"3.10"}`})
	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))

	_, err = call(hs.catalog.CreateProduct, reqOpts{method: http.MethodPost, body: `{"title":"x","price":"abc"}`})
	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestUploadImage_NoStorage(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.seed(t, 1, nil)
	var p models.Product
	require.NoError(t, hs.repo.DB.First(&p).Error)

	_, err := call(hs.catalog.UploadImage, reqOpts{
		method:      http.MethodPut,
		body:        "png",
		contentType: "image/png",
		params:      map[string]string{"id": p.ID.String()},
	})
	assert.Equal(t, http.StatusServiceUnavailable, httpCode(t, err))
}
