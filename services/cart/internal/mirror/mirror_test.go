package mirror

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	id := uuid.New()

	_, ok, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, id, 3))
	n, ok, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 3, n)
}

func TestRedis_UnreachableReturnsError(t *testing.T) {
	t.Parallel()

	r := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
	t.Cleanup(func() { _ = r.Close() })

	err := r.Set(context.Background(), uuid.New(), 1)
	require.Error(t, err)

	_, ok, err := r.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.False(t, ok)

	assert.Error(t, r.Ping(context.Background()))
}
