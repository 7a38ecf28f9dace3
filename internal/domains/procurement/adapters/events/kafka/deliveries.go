package kafka

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/application"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// DeliveryDroppedOffTopic carries logistics drop-off notifications.
const DeliveryDroppedOffTopic = "logistics.delivery.dropped-off"

// DeliveryDroppedOff is the message body on DeliveryDroppedOffTopic.
type DeliveryDroppedOff struct {
	ShipmentID string `json:"shipment_id"`
	Quantity   int64  `json:"quantity"`
}

// DeliveryHandler applies drop-off messages to purchase orders.
type DeliveryHandler struct {
	service   ports.Service
	logger    *slog.Logger
	processed ports.IdempotencyStore
	now       func() time.Time
}

type DeliveryHandlerOption func(*DeliveryHandler)

// WithProcessedMessages remembers applied messages by partition and offset, so a message redelivered after a
// lost commit is not counted twice.
func WithProcessedMessages(store ports.IdempotencyStore) DeliveryHandlerOption {
	return func(h *DeliveryHandler) {
		h.processed = store
	}
}

func NewDeliveryHandler(service ports.Service, logger *slog.Logger, opts ...DeliveryHandlerOption) *DeliveryHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &DeliveryHandler{service: service, logger: logger, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// MessageKey identifies m within its topic for deduplication.
func MessageKey(m kafkago.Message) string {
	return fmt.Sprintf("kafka/%s/%d/%d", m.Topic, m.Partition, m.Offset)
}

// Handle returns an error only for failures worth redelivering. Messages that can never apply are logged and skipped.
func (h *DeliveryHandler) Handle(ctx context.Context, m kafkago.Message) error {
	var msg DeliveryDroppedOff
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		h.skip(ctx, m, "malformed delivery message", err)
		return nil
	}
	if strings.TrimSpace(msg.ShipmentID) == "" || msg.Quantity <= 0 {
		h.skip(ctx, m, "incomplete delivery message", errors.New("shipment_id and a positive quantity are required"))
		return nil
	}
	key := MessageKey(m)
	if h.processed != nil {
		seen, err := h.processed.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("load processed message %s: %w", key, err)
		}
		if seen != nil {
			h.logger.LogAttrs(ctx, slog.LevelInfo, "delivery already applied, skipping",
				slog.String("message.key", key), slog.Int64("order.id", seen.OrderID))
			return nil
		}
	}
	order, err := h.service.RecordDelivery(ctx, msg.ShipmentID, msg.Quantity)
	switch {
	case err == nil:
		h.logger.LogAttrs(ctx, slog.LevelInfo, "delivery applied",
			slog.Int64("order.id", order.ID),
			slog.String("shipment.id", msg.ShipmentID),
			slog.String("status", string(order.Status)))
		h.remember(ctx, key, m, order.ID)
		return nil
	case errors.Is(err, ports.ErrNotFound),
		errors.Is(err, application.ErrConflict),
		errors.Is(err, application.ErrInvalidInput):
		h.skip(ctx, m, "delivery cannot be applied", err)
		return nil
	default:
		return err
	}
}

// remember records an applied message. A failure is logged only: the delivery already happened and
// redelivering it would count it twice.
func (h *DeliveryHandler) remember(ctx context.Context, key string, m kafkago.Message, orderID int64) {
	if h.processed == nil {
		return
	}
	sum := sha256.Sum256(m.Value)
	_, err := h.processed.Save(ctx, ports.IdempotencyRecord{
		Key:         key,
		RequestHash: hex.EncodeToString(sum[:]),
		OrderID:     orderID,
		CreatedAt:   h.now(),
	})
	if err != nil && !errors.Is(err, ports.ErrIdempotencyConflict) {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "failed to record processed delivery message",
			slog.String("message.key", key), slog.String("error", err.Error()))
	}
}

func (h *DeliveryHandler) skip(ctx context.Context, m kafkago.Message, msg string, err error) {
	h.logger.LogAttrs(ctx, slog.LevelWarn, msg,
		slog.String("topic", m.Topic),
		slog.Int64("offset", m.Offset),
		slog.String("error", err.Error()))
}
