package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/Skotchmaster/sweet_shop/pkg/db"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/hub"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/repo"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/service"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/transport"
)

type harness struct {
	h     *NotifyHTTP
	repo  *repo.GormRepo
	admin uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := pkgdb.OpenMemory(&models.Notification{}, &models.User{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := &repo.GormRepo{DB: db}
	return &harness{
		h:     &NotifyHTTP{Svc: &service.NotifyService{Repo: r, Language: "en"}, Hub: hub.New(nil, nil)},
		repo:  r,
		admin: uuid.New(),
	}
}

func (hs *harness) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := models.User{ID: uuid.New(), Name: name, Role: "user"}
	require.NoError(t, hs.repo.DB.Create(&u).Error)
	return u.ID
}

func (hs *harness) do(handler echo.HandlerFunc, method, body, lang string, as uuid.UUID, params ...string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Accept-Language", lang)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	c.Set(session.CtxUserID, as.String())
	c.Set(session.CtxName, "Admin")
	return rec, handler(c)
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	return he.Code
}

func TestSend_OneUserThenList(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	ann := hs.user(t, "Ann")

	rec, err := hs.do(hs.h.Send, http.MethodPost, `{"user_id":"`+ann.String()+`","message":"Your order is ready"}`, "fr", hs.admin)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var sent transport.SendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	assert.Equal(t, "Notification envoyée à 1 destinataire(s)", sent.Message)
	assert.Equal(t, 1, sent.Summary.Sent)
	assert.Empty(t, sent.Failed)

	rec, err = hs.do(hs.h.List, http.MethodGet, "", "en", ann)
	require.NoError(t, err)
	var list transport.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.EqualValues(t, 1, list.Unread)
	assert.Equal(t, "Admin", list.Items[0].SenderName)
	require.NotNil(t, list.Items[0].SenderID)
	assert.Equal(t, hs.admin, *list.Items[0].SenderID)

	rec, err = hs.do(hs.h.MarkRead, http.MethodPatch, "", "en", ann, "id", list.Items[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSend_All(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.user(t, "Ann")
	hs.user(t, "Bob")

	rec, err := hs.do(hs.h.Send, http.MethodPost, `{"all":true,"title":"Sale","message":"20% off truffles"}`, "en", hs.admin)
	require.NoError(t, err)

	var sent transport.SendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	assert.Equal(t, "Notification sent to 2 recipient(s)", sent.Message)
}

func TestSend_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "no target", body: `{"message":"m"}`, want: http.StatusBadRequest},
		{name: "both targets", body: `{"all":true,"user_id":"` + uuid.NewString() + `","message":"m"}`, want: http.StatusBadRequest},
		{name: "empty message", body: `{"all":true,"message":" "}`, want: http.StatusBadRequest},
		{name: "unknown user", body: `{"user_id":"` + uuid.NewString() + `","message":"m"}`, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			hs := newHarness(t)
			_, err := hs.do(hs.h.Send, http.MethodPost, tt.body, "en", hs.admin)
			assert.Equal(t, tt.want, httpCode(t, err))
		})
	}
}

func TestMarkRead_Errors(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	_, err := hs.do(hs.h.MarkRead, http.MethodPatch, "", "en", uuid.New(), "id", "nope")
	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))

	_, err = hs.do(hs.h.MarkRead, http.MethodPatch, "", "en", uuid.New(), "id", uuid.NewString())
	assert.Equal(t, http.StatusNotFound, httpCode(t, err))
}

func TestList_Unauthorized(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, hs.h.List(c)))
}
