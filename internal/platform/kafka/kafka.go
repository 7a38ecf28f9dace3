package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Envelope wraps every event this service publishes.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Payload      json.RawMessage `json:"payload"`
}

// Writer is the subset of *kafkago.Writer used by publishers.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Reader is the subset of *kafkago.Reader used by consumers.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter returns a synchronous writer keyed by message key.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
}

// NewReader returns a consumer-group reader with manual commits.
func NewReader(brokers []string, group, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
}

// Handler must return nil only when the message may be committed.
type Handler func(ctx context.Context, m kafkago.Message) error

// Consumer feeds messages to a handler one at a time and commits after success.
type Consumer struct {
	r          Reader
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

type ConsumerOption func(*Consumer)

func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBackoff bounds the delay between redeliveries of a failing message.
func WithBackoff(minDelay, maxDelay time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if minDelay > 0 {
			c.minBackoff = minDelay
		}
		if maxDelay >= c.minBackoff {
			c.maxBackoff = maxDelay
		}
	}
}

func NewConsumer(r Reader, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		r:          r,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		minBackoff: 200 * time.Millisecond,
		maxBackoff: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Start blocks until ctx is cancelled or the reader is closed. Fetch and commit errors are retried with backoff,
// and a failing message is retried until it succeeds.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()
	for {
		var m kafkago.Message
		closed := false
		ok := c.retry(ctx, "fetch message failed, retrying", nil, func() error {
			var err error
			m, err = c.r.FetchMessage(ctx)
			if errors.Is(err, io.EOF) {
				closed = true
				return nil
			}
			return err
		})
		if !ok || closed {
			return nil
		}
		attrs := []slog.Attr{
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
		}
		if !c.retry(ctx, "message handler failed, retrying", attrs, func() error { return h(ctx, m) }) {
			return nil
		}
		if !c.retry(ctx, "commit failed, retrying", attrs, func() error { return c.r.CommitMessages(ctx, m) }) {
			return nil
		}
	}
}

// retry runs fn until it succeeds. It reports false when ctx ended first.
func (c *Consumer) retry(ctx context.Context, msg string, attrs []slog.Attr, fn func() error) bool {
	delay := c.minBackoff
	for {
		err := fn()
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.logger.LogAttrs(ctx, slog.LevelWarn, msg,
			append(attrs, slog.Duration("backoff", delay), slog.String("error", err.Error()))...)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay = min(delay*2, c.maxBackoff)
	}
}
