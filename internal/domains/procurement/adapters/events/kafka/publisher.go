package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
	platformkafka "github.com/Apurer/procurement-engine/internal/platform/kafka"
)

const (
	// EventStatusChanged is published whenever a purchase order changes status.
	EventStatusChanged = "procurement.order.status_changed"
	eventVersion       = 1
)

// StatusChangedPayload is the payload of EventStatusChanged.
type StatusChangedPayload struct {
	OrderID     int64  `json:"order_id"`
	ExternalRef string `json:"external_ref,omitempty"`
	From        string `json:"from"`
	To          string `json:"to"`
	Reason      string `json:"reason,omitempty"`
}

// Publisher implements ports.EventPublisher on a Kafka topic keyed by order id.
type Publisher struct {
	writer   platformkafka.Writer
	producer string
	now      func() time.Time
}

func NewPublisher(writer platformkafka.Writer, producer string) *Publisher {
	return &Publisher{writer: writer, producer: producer, now: time.Now}
}

func (p *Publisher) PublishStatusChanged(ctx context.Context, change ports.StatusChange) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher not configured")
	}
	payload, err := json.Marshal(StatusChangedPayload{
		OrderID:     change.OrderID,
		ExternalRef: change.ExternalRef,
		From:        string(change.From),
		To:          string(change.To),
		Reason:      change.Reason,
	})
	if err != nil {
		return fmt.Errorf("encode status change: %w", err)
	}
	occurred := change.OccurredAt
	if occurred.IsZero() {
		occurred = p.now()
	}
	envelope, err := json.Marshal(platformkafka.Envelope{
		EventID:      uuid.NewString(),
		EventType:    EventStatusChanged,
		EventVersion: eventVersion,
		OccurredAt:   occurred.UTC(),
		Producer:     p.producer,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(strconv.FormatInt(change.OrderID, 10)),
		Value: envelope,
		Time:  occurred,
		Headers: []kafkago.Header{
			{Key: "x-event-type", Value: []byte(EventStatusChanged)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(eventVersion))},
		},
	})
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

var _ ports.EventPublisher = (*Publisher)(nil)
