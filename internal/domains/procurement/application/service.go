package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// Enqueuer schedules orders for workflow processing.
type Enqueuer interface {
	Enqueue(orderID int64)
}

// Service orchestrates purchase order use cases outside the workflow engine.
type Service struct {
	repo   ports.Repository
	queue  Enqueuer
	events ports.EventPublisher
	logger *slog.Logger
	now    func() time.Time

	idempotency ports.IdempotencyStore
	// placing serializes keyed placements so one key never creates two orders in this process.
	placing sync.Mutex
}

type ServiceOption func(*Service)

// WithServiceEvents publishes status changes caused by delivery drop-offs.
func WithServiceEvents(events ports.EventPublisher) ServiceOption {
	return func(s *Service) {
		if events != nil {
			s.events = events
		}
	}
}

// WithServiceLogger injects a slog logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIdempotencyStore enables Idempotency-Key replay for PlaceOrder.
func WithIdempotencyStore(store ports.IdempotencyStore) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.idempotency = store
		}
	}
}

// WithServiceClock overrides the timestamp source.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo ports.Repository, queue Enqueuer, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		queue:  queue,
		events: ports.NopPublisher{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// PlaceOrder persists a new order in its initial status and schedules it for processing.
// With an idempotency key and store, a repeated request returns the order created first.
func (s *Service) PlaceOrder(ctx context.Context, input ports.PlaceOrderInput) (*domain.PurchaseOrder, error) {
	input.IdempotencyKey = strings.TrimSpace(input.IdempotencyKey)
	if input.IdempotencyKey != "" && s.idempotency != nil {
		return s.placeIdempotent(ctx, input)
	}
	return s.place(ctx, input)
}

func (s *Service) place(ctx context.Context, input ports.PlaceOrderInput) (*domain.PurchaseOrder, error) {
	order := &domain.PurchaseOrder{
		ExternalRef:       strings.TrimSpace(input.ExternalRef),
		Quantity:          input.Quantity,
		UnitPrice:         input.UnitPrice,
		Origin:            strings.TrimSpace(input.Origin),
		SellerBankAccount: strings.TrimSpace(input.SellerBankAccount),
		IsEquipmentOrder:  input.IsEquipmentOrder,
		Status:            domain.StatusRequiresPaymentToSupplier,
	}
	if input.Material != nil {
		material := *input.Material
		order.Material = &material
	}
	if err := order.Validate(); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("save purchase order: %w", err)
	}
	if s.queue != nil {
		s.queue.Enqueue(saved.ID)
	}
	return saved, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.PurchaseOrder, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	return s.repo.List(ctx)
}

// RecordDelivery applies a logistics drop-off to the order carrying shipmentID.
// The increment and the status change happen atomically in storage.
func (s *Service) RecordDelivery(ctx context.Context, shipmentID string, quantity int64) (*domain.PurchaseOrder, error) {
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return nil, fmt.Errorf("%w: shipment id is required", ErrInvalidInput)
	}
	if quantity <= 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	found, err := s.repo.FindByShipmentID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.RecordDelivery(ctx, found.ID, quantity)
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrNotFound):
		return nil, err
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidQuantity):
		return nil, mapError(err)
	default:
		return nil, fmt.Errorf("record delivery: %w", err)
	}
	if order.Status == domain.StatusDelivered {
		change := ports.StatusChange{
			OrderID:     order.ID,
			ExternalRef: order.ExternalRef,
			From:        domain.StatusWaitingForDelivery,
			To:          order.Status,
			Reason:      "delivery drop-off",
			OccurredAt:  s.now(),
		}
		if err := s.events.PublishStatusChanged(ctx, change); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish delivery status change",
				slog.Int64("order.id", order.ID), slog.String("error", err.Error()))
		}
	}
	return order, nil
}
