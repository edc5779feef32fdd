package auditamqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	goBlog "github.com/MrEthical07/goBlog"
	"github.com/MrEthical07/goBlog/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the queue audit events are published to when Config.Queue is empty.
const DefaultQueue = "goblog.audit"

const defaultPublishTimeout = 5 * time.Second

// ErrClosed is returned by [Sink.Close] on a second call.
var ErrClosed = errors.New("audit sink closed")

// Config configures a [Sink].
type Config struct {
	URL            string
	Queue          string
	PublishTimeout time.Duration
	Logger         logging.Logger
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Sink publishes audit events to RabbitMQ.
type Sink struct {
	ch      publisher
	conn    *amqp.Connection
	queue   string
	timeout time.Duration
	logger  logging.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	failed    atomic.Uint64
}

// Dial connects to cfg.URL, opens a channel and declares the durable queue.
//
//	Docs: docs/audit.md
func Dial(cfg Config) (*Sink, error) {
	if cfg.URL == "" {
		return nil, errors.New("auditamqp: URL is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("auditamqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("auditamqp: channel open: %w", err)
	}

	queue := queueName(cfg.Queue)
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("auditamqp: queue declare: %w", err)
	}

	s := newSink(ch, cfg)
	s.conn = conn
	return s, nil
}

func newSink(ch publisher, cfg Config) *Sink {
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Sink{
		ch:      ch,
		queue:   queueName(cfg.Queue),
		timeout: timeout,
		logger:  logger,
	}
}

func queueName(q string) string {
	if q == "" {
		return DefaultQueue
	}
	return q
}

// Emit publishes event. It never returns an error; failures are counted and logged.
func (s *Sink) Emit(ctx context.Context, event goBlog.AuditEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.fail(ctx, "marshal", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ts.UTC(),
		Type:         event.EventType,
		MessageId:    event.RequestID,
		Body:         body,
	}
	if err := s.ch.PublishWithContext(ctx, "", s.queue, false, false, msg); err != nil {
		s.fail(ctx, "publish", err)
	}
}

func (s *Sink) fail(ctx context.Context, op string, err error) {
	s.failed.Add(1)
	s.logger.Warn(ctx, "goblog: audit publish failed", "op", op, "queue", s.queue, "error", err)
}

// Failed reports how many events could not be published.
func (s *Sink) Failed() uint64 {
	if s == nil {
		return 0
	}
	return s.failed.Load()
}

// Close closes the channel and, for dialed sinks, the connection. The engine
// calls it after draining its dispatcher.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	err := ErrClosed
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.ch.Close()
		if s.conn != nil {
			err = errors.Join(err, s.conn.Close())
		}
	})
	return err
}
