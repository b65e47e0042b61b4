package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/sweet_shop/pkg/logging"
)

// Handler returns nil only when the message was processed and its offset
// may be committed.
type Handler func(ctx context.Context, env Envelope) error

type Consumer struct {
	r   *kafka.Reader
	log *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, log *slog.Logger) *Consumer {
	if log == nil {
		log = logging.Discard()
	}
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        group,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
		}),
		log: log.With("component", "kafka_consumer", "topic", topic),
	}
}

// Run blocks until ctx is cancelled. Messages that fail to decode are
// committed and skipped; a failing handler is retried on the same message,
// with backoff, until it succeeds or ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	defer c.r.Close()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		env, err := DecodeEnvelope(m.Value)
		if err != nil {
			c.log.Warn("event_decode_failed", "offset", m.Offset, "error", err)
			if cErr := c.r.CommitMessages(ctx, m); cErr != nil {
				c.log.Error("event_commit_failed", "error", cErr)
			}
			continue
		}

		if !c.handle(ctx, h, env) {
			return nil
		}

		if err := c.r.CommitMessages(ctx, m); err != nil {
			c.log.Error("event_commit_failed", "error", err)
		}
	}
}

const (
	retryBase = 200 * time.Millisecond
	retryMax  = 30 * time.Second
)

func retryDelay(attempt int) time.Duration {
	d := retryBase
	for i := 1; i < attempt && d < retryMax; i++ {
		d *= 2
	}
	return min(d, retryMax)
}

// handle reports false when ctx was cancelled before h succeeded.
func (c *Consumer) handle(ctx context.Context, h Handler, env Envelope) bool {
	for attempt := 1; ; attempt++ {
		err := h(ctx, env)
		if err == nil {
			return true
		}
		delay := retryDelay(attempt)
		c.log.Error("event_handle_failed", "event_type", env.EventType, "event_id", env.EventID, "attempt", attempt, "retry_in", delay, "error", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}
}
