package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/Skotchmaster/sweet_shop/pkg/db"
	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/repo"
)

type failingStore struct {
	*repo.GormRepo
	failFor map[uuid.UUID]bool
}

func (s *failingStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	if s.failFor[n.UserID] {
		return errors.New("insert refused")
	}
	return s.GormRepo.InsertNotification(ctx, n)
}

type fakeMail struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMail) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakePush struct {
	mu     sync.Mutex
	pushed []uuid.UUID
}

func (p *fakePush) Push(userID uuid.UUID, _ any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, userID)
	return 1
}

type harness struct {
	svc    *NotifyService
	store  *failingStore
	mail   *fakeMail
	push   *fakePush
	events *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := pkgdb.OpenMemory(&models.Notification{}, &models.User{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	h := &harness{
		store:  &failingStore{GormRepo: &repo.GormRepo{DB: db}, failFor: map[uuid.UUID]bool{}},
		mail:   &fakeMail{},
		push:   &fakePush{},
		events: &events.Recorder{},
	}
	h.svc = &NotifyService{
		Repo:     h.store,
		Language: "en",
		Mail:     h.mail,
		Push:     h.push,
		Events:   h.events,
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notifications_total"}, []string{"outcome"}),
	}
	return h
}

func (h *harness) addUser(t *testing.T, name, email string) models.User {
	t.Helper()
	u := models.User{ID: uuid.New(), Name: name, Role: "user"}
	if email != "" {
		u.Email = &email
	}
	require.NoError(t, h.store.DB.Create(&u).Error)
	return u
}

func TestNotifyUsers_IsolatesFailures(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	// 5 recipients, 2 without an email address, 1 whose insert fails.
	recipients := []Recipient{
		{UserID: uuid.New(), Name: "Ann", Email: "ann@example.com"},
		{UserID: uuid.New(), Name: "Bob"},
		{UserID: uuid.New(), Name: "Cid", Email: "cid@example.com"},
		{UserID: uuid.New(), Name: "Dee"},
		{UserID: uuid.New(), Name: "Eve", Email: "eve@example.com"},
	}
	h.store.failFor[recipients[2].UserID] = true

	results := h.svc.NotifyUsers(ctx, recipients, Payload{Title: "Hi", Message: "Fresh fudge", Type: models.TypeText}, Sender{Name: "Admin"})
	require.Len(t, results, 5)

	sum := Summarize(results)
	assert.Equal(t, 5, sum.Recipients)
	assert.Equal(t, 4, sum.Sent)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 3, sum.Emailed)
	assert.True(t, sum.PartialFanoutFailure())

	assert.True(t, results[2].Failed())
	assert.Equal(t, EmailSent, results[2].Email, "email is attempted even when the row could not be stored")
	assert.Equal(t, EmailSkipped, results[1].Email)
	assert.Equal(t, EmailSkipped, results[3].Email)
	assert.ElementsMatch(t, []string{"ann@example.com", "cid@example.com", "eve@example.com"}, h.mail.sent)
	assert.Len(t, h.push.pushed, 4)

	for i, r := range results {
		if i == 2 {
			continue
		}
		list, err := h.store.ListNotifications(ctx, r.Recipient.UserID, false, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Fresh fudge", list[0].Message)
		assert.Equal(t, "Admin", list[0].SenderName)
	}

	assert.Equal(t, 4.0, testutil.ToFloat64(h.svc.Outcomes.WithLabelValues("stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.svc.Outcomes.WithLabelValues("insert_failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.svc.Outcomes.WithLabelValues("emailed")))

	rec := h.events.Snapshot()
	require.Len(t, rec, 1)
	assert.Equal(t, events.TopicNotification, rec[0].Topic)
	assert.Equal(t, "notification_batch_sent", rec[0].EventType)
}

func TestNotifyUsers_EmailFailureIsNotAFailedRecipient(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.mail.err = errors.New("smtp down")

	results := h.svc.NotifyUsers(context.Background(),
		[]Recipient{{UserID: uuid.New(), Email: "a@example.com"}},
		Payload{Title: "t", Message: "m", Type: models.TypeText}, Sender{})

	require.Len(t, results, 1)
	assert.False(t, results[0].Failed())
	assert.Equal(t, EmailError, results[0].Email)
	assert.Error(t, results[0].EmailErr)

	sum := Summarize(results)
	assert.False(t, sum.PartialFanoutFailure())
	assert.Equal(t, 1, sum.EmailFailed)
}

func TestNotifyUser(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	u := h.addUser(t, "Ann", "ann@example.com")

	res, err := h.svc.NotifyUser(ctx, u.ID, Payload{Message: "  Your code is SWEET10 "}, Sender{})
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, EmailSent, res.Email)

	list, unread, err := h.svc.List(ctx, u.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, unread)
	assert.Equal(t, "Your code is SWEET10", list[0].Message)
	assert.Equal(t, models.TypeText, list[0].Type)
	assert.Equal(t, "Sweet Shop", list[0].Title)

	_, err = h.svc.NotifyUser(ctx, uuid.New(), Payload{Message: "x"}, Sender{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotify_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload Payload
	}{
		{name: "empty message", payload: Payload{Message: "   "}},
		{name: "unknown type", payload: Payload{Message: "m", Type: "sms"}},
		{name: "product without reference", payload: Payload{Message: "m", Type: models.TypeProduct}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			_, err := h.svc.NotifyAll(context.Background(), tt.payload, Sender{})
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, h.events.Snapshot())
		})
	}
}

func TestNotifyAll(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.addUser(t, "Ann", "ann@example.com")
	h.addUser(t, "Bob", "")
	h.addUser(t, "Cid", "cid@example.com")

	results, err := h.svc.NotifyAll(ctx, Payload{Message: "Sale!"}, Sender{})
	require.NoError(t, err)
	sum := Summarize(results)
	assert.Equal(t, 3, sum.Sent)
	assert.Equal(t, 2, sum.Emailed)
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	u := h.addUser(t, "Ann", "")
	res, err := h.svc.NotifyUser(ctx, u.ID, Payload{Message: "m"}, Sender{})
	require.NoError(t, err)

	assert.ErrorIs(t, h.svc.MarkRead(ctx, uuid.New(), res.NotificationID), ErrNotFound)
	require.NoError(t, h.svc.MarkRead(ctx, u.ID, res.NotificationID))

	_, unread, err := h.svc.List(ctx, u.ID, false, 10)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func orderEnvelope(t *testing.T, eventType string, payload any) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope("order", eventType, payload)
	require.NoError(t, err)
	return env
}

func TestHandleOrderEvent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	u := h.addUser(t, "Ann", "")
	orderID := uuid.MustParse("0d9b2a4e-0000-4000-8000-000000000001")

	env := orderEnvelope(t, EventOrderStatusChanged, OrderStatusChanged{OrderID: orderID, UserID: u.ID, From: "paid", To: "shipped"})
	require.NoError(t, h.svc.HandleOrderEvent(ctx, env))

	list, _, err := h.svc.List(ctx, u.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.TypeOrder, list[0].Type)
	assert.Equal(t, "Your order 0d9b2a4e is now shipped", list[0].Message)
	require.NotNil(t, list[0].ReferenceID)
	assert.Equal(t, orderID.String(), *list[0].ReferenceID)
}

func TestHandleOrderEvent_InsertFailureSendsNoEmail(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	u := h.addUser(t, "Ann", "ann@example.com")
	h.store.failFor[u.ID] = true

	env := orderEnvelope(t, EventOrderStatusChanged, OrderStatusChanged{OrderID: uuid.New(), UserID: u.ID, From: "new", To: "paid"})

	// redelivery while the store is down
	for i := 0; i < 3; i++ {
		assert.Error(t, h.svc.HandleOrderEvent(ctx, env))
	}
	assert.Empty(t, h.mail.sent)

	h.store.failFor[u.ID] = false
	require.NoError(t, h.svc.HandleOrderEvent(ctx, env))
	assert.Equal(t, []string{"ann@example.com"}, h.mail.sent)
	assert.Equal(t, []uuid.UUID{u.ID}, h.push.pushed)
}

func TestHandleOrderEvent_Skips(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	assert.NoError(t, h.svc.HandleOrderEvent(ctx, orderEnvelope(t, "order_created", map[string]string{})))
	assert.NoError(t, h.svc.HandleOrderEvent(ctx, events.Envelope{EventType: EventOrderStatusChanged, Payload: json.RawMessage(`"nope"`)}))
	assert.NoError(t, h.svc.HandleOrderEvent(ctx, orderEnvelope(t, EventOrderStatusChanged, OrderStatusChanged{OrderID: uuid.New(), UserID: uuid.New(), To: "paid"})))
	assert.Empty(t, h.push.pushed)
}

func TestRenderEmail_EscapesMessage(t *testing.T) {
	t.Parallel()

	body, err := renderEmail(emailData{Title: "Hi", Name: "Ann", Message: "<script>x</script>"})
	require.NoError(t, err)
	assert.Contains(t, body, "Hi Ann,")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}
