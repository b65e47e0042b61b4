// Package mirror keeps a per-user copy of the cart line count. It is
// refreshed after every mutation and answers badge reads when the
// database is unavailable.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyCartCount = "cart:count:%s"
	ttlCartCount = 24 * time.Hour
)

type CountMirror interface {
	Set(ctx context.Context, userID uuid.UUID, count int64) error
	Get(ctx context.Context, userID uuid.UUID) (int64, bool, error)
}

type Memory struct {
	mu     sync.RWMutex
	counts map[uuid.UUID]int64
}

func NewMemory() *Memory {
	return &Memory{counts: make(map[uuid.UUID]int64)}
}

func (m *Memory) Set(_ context.Context, userID uuid.UUID, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[userID] = count
	return nil
}

func (m *Memory) Get(_ context.Context, userID uuid.UUID) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.counts[userID]
	return n, ok, nil
}

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(addr string) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:         addr,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		}),
		ttl: ttlCartCount,
	}
}

func NewRedisWithClient(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, ttl: ttlCartCount}
}

func (r *Redis) Set(ctx context.Context, userID uuid.UUID, count int64) error {
	if err := r.rdb.Set(ctx, fmt.Sprintf(keyCartCount, userID), count, r.ttl).Err(); err != nil {
		return fmt.Errorf("mirror set: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	v, err := r.rdb.Get(ctx, fmt.Sprintf(keyCartCount, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("mirror get: %w", err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("mirror get: %w", err)
	}
	return n, true, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
