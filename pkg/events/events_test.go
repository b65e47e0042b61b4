package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/sweet_shop/pkg/logging"
)

type orderStatus struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

func TestEnvelope_RoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	env, err := NewEnvelope("order", "order_status_changed", orderStatus{OrderID: id, Status: "shipped"})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "order_status_changed", decoded.EventType)

	payload, err := UnwrapPayload[orderStatus](decoded.Payload)
	require.NoError(t, err)
	assert.Equal(t, id, payload.OrderID)
	assert.Equal(t, "shipped", payload.Status)
}

func TestDecodeEnvelope_Garbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeEnvelope([]byte("{"))
	require.Error(t, err)
}

func TestProducer_PublishBufferFull(t *testing.T) {
	t.Parallel()

	p := NewProducer([]string{"127.0.0.1:1"}, "cart", 1, nil)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, TopicCart, "u1", "cart_updated", map[string]any{"count": 1}))
	assert.ErrorIs(t, p.Publish(ctx, TopicCart, "u1", "cart_updated", map[string]any{"count": 2}), ErrBufferFull)
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	require.NoError(t, r.Publish(context.Background(), TopicProduct, "p1", "product_created", nil))
	got := r.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "product_created", got[0].EventType)
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 200 * time.Millisecond},
		{attempt: 2, want: 400 * time.Millisecond},
		{attempt: 4, want: 1600 * time.Millisecond},
		{attempt: 10, want: 30 * time.Second},
		{attempt: 1000, want: 30 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestConsumer_HandleRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	c := &Consumer{log: logging.Discard()}
	calls := 0
	ok := c.handle(context.Background(), func(context.Context, Envelope) error {
		calls++
		if calls < 2 {
			return errors.New("db down")
		}
		return nil
	}, Envelope{EventType: "order_status_changed"})

	assert.True(t, ok)
	assert.Equal(t, 2, calls)
}

func TestConsumer_HandleStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{log: logging.Discard()}
	calls := 0
	ok := c.handle(ctx, func(context.Context, Envelope) error {
		calls++
		cancel()
		return errors.New("db down")
	}, Envelope{})

	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}
