package paginator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	p        *Paginator
	lastSeen time.Time
}

// Browser keeps one Paginator per signed-in user.
type Browser struct {
	src      Source
	pageSize int
	now      func() time.Time

	mu    sync.Mutex
	users map[uuid.UUID]*session
}

func NewBrowser(src Source, pageSize int) *Browser {
	return &Browser{
		src:      src,
		pageSize: pageSize,
		now:      time.Now,
		users:    make(map[uuid.UUID]*session),
	}
}

func (b *Browser) For(userID uuid.UUID) *Paginator {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.users[userID]
	if !ok {
		s = &session{p: New(b.src, b.pageSize)}
		b.users[userID] = s
	}
	s.lastSeen = b.now()
	return s.p
}

func (b *Browser) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.users)
}

func (b *Browser) Invalidate(categoryID *uuid.UUID) {
	for _, p := range b.paginators() {
		p.Invalidate(categoryID)
	}
}

func (b *Browser) InvalidateAll() {
	for _, p := range b.paginators() {
		p.InvalidateAll()
	}
}

// Evict forgets users idle for longer than idle and returns how many.
func (b *Browser) Evict(idle time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-idle)
	n := 0
	for id, s := range b.users {
		if s.lastSeen.Before(cutoff) {
			delete(b.users, id)
			n++
		}
	}
	return n
}

// Sweep runs Evict every interval until ctx is done.
func (b *Browser) Sweep(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.Evict(idle)
		}
	}
}

func (b *Browser) paginators() []*Paginator {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*Paginator, 0, len(b.users))
	for _, s := range b.users {
		out = append(out, s.p)
	}
	return out
}
