package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/sweet_shop/pkg/logging"
)

var ErrBufferFull = errors.New("events: publish buffer full")

type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload any) error
}

// Producer queues messages on a buffered channel and writes them from a
// single goroutine, so callers never wait on the broker.
type Producer struct {
	w      *kafka.Writer
	source string
	inbox  chan kafka.Message
	done   chan struct{}
	closed chan struct{}
	once   sync.Once
	log    *slog.Logger
}

func NewProducer(brokers []string, source string, buf int, log *slog.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		source: source,
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
		log:    log.With("component", "kafka_producer"),
	}
}

func (p *Producer) Start() {
	go func() {
		defer close(p.closed)
		for {
			select {
			case m := <-p.inbox:
				p.write(m)
			case <-p.done:
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						if err := p.w.Close(); err != nil {
							p.log.Error("kafka_writer_close_failed", "error", err)
						}
						return
					}
				}
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("kafka_publish_failed", "topic", m.Topic, "key", string(m.Key), "error", err)
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key, eventType string, payload any) error {
	env, err := NewEnvelope(p.source, eventType, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// Close flushes queued messages and waits for the writer to shut down.
func (p *Producer) Close() {
	p.once.Do(func() { close(p.done) })
	<-p.closed
}

// Discard drops every event. Used when KAFKA_BROKERS is not configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, string, string, any) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

type Recorded struct {
	Topic     string
	Key       string
	EventType string
	Payload   any
}

func (r *Recorder) Publish(_ context.Context, topic, key, eventType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{Topic: topic, Key: key, EventType: eventType, Payload: payload})
	return nil
}

func (r *Recorder) Snapshot() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.Events))
	copy(out, r.Events)
	return out
}
