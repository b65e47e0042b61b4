// Package realtime broadcasts catalog changes over Postgres LISTEN/NOTIFY so
// every catalog instance can drop its cached product sets.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const Channel = "catalog_changes"

type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

type Change struct {
	Op         Op         `json:"op"`
	ProductID  uuid.UUID  `json:"product_id"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	// PrevCategoryID is set when an update moved the product.
	PrevCategoryID *uuid.UUID `json:"prev_category_id,omitempty"`
}

func Decode(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	return c, nil
}

// Notifier sends changes with pg_notify on the shared database.
type Notifier struct {
	DB *gorm.DB
}

func (n *Notifier) Notify(ctx context.Context, c Change) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return n.DB.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", Channel, string(b)).Error
}

// Invalidator is what a Listener drives.
type Invalidator interface {
	Invalidate(categoryID *uuid.UUID)
	InvalidateAll()
}

// Apply drops the cached sets a change can affect.
func Apply(inv Invalidator, c Change) {
	inv.Invalidate(c.CategoryID)
	if c.PrevCategoryID != nil {
		inv.Invalidate(c.PrevCategoryID)
	}
}

type Listener struct {
	l   *pq.Listener
	log *slog.Logger
}

func NewListener(dsn string, log *slog.Logger) *Listener {
	lst := &Listener{log: log}
	lst.l = pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("catalog_listener_event", "event", int(ev), "error", err)
		}
	})
	return lst
}

// Run listens until ctx is done. A reconnect may have lost notifications,
// so it clears everything.
func (lst *Listener) Run(ctx context.Context, inv Invalidator) error {
	if err := lst.l.Listen(Channel); err != nil {
		return fmt.Errorf("listen %s: %w", Channel, err)
	}
	defer lst.l.Close()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-lst.l.Notify:
			if n == nil {
				lst.log.Info("catalog_listener_reconnected")
				inv.InvalidateAll()
				continue
			}
			c, err := Decode(n.Extra)
			if err != nil {
				lst.log.Warn("catalog_change_decode_failed", "error", err)
				inv.InvalidateAll()
				continue
			}
			Apply(inv, c)
		case <-ping.C:
			if err := lst.l.Ping(); err != nil {
				lst.log.Warn("catalog_listener_ping_failed", "error", err)
			}
		}
	}
}
