package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

const tracerName = "github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/observability"

// Service decorates the purchase order service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*instrumentation)

// instrumentation carries the shared options for every decorator in this package.
type instrumentation struct {
	tracer trace.Tracer
	logger *slog.Logger
	meter  metric.Meter
}

func WithLogger(logger *slog.Logger) Option {
	return func(i *instrumentation) {
		i.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(i *instrumentation) {
		i.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(i *instrumentation) {
		i.meter = m
	}
}

func newInstrumentation(opts []Option) instrumentation {
	i := instrumentation{}
	for _, opt := range opts {
		if opt != nil {
			opt(&i)
		}
	}
	if i.tracer == nil {
		i.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if i.logger == nil {
		i.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return i
}

// New wraps the core purchase order service.
func New(inner ports.Service, opts ...Option) ports.Service {
	i := newInstrumentation(opts)
	return &Service{
		inner:   inner,
		tracer:  i.tracer,
		logger:  i.logger,
		metrics: newServiceMetrics(i.meter),
	}
}

func (s *Service) PlaceOrder(ctx context.Context, input ports.PlaceOrderInput) (*domain.PurchaseOrder, error) {
	ctx, span := s.tracer.Start(ctx, "ProcurementService.PlaceOrder",
		trace.WithAttributes(attribute.String("order.external_ref", input.ExternalRef), attribute.Bool("order.equipment", input.IsEquipmentOrder)))
	defer span.End()

	s.logInfo(ctx, "placing purchase order", slog.String("order.external_ref", input.ExternalRef), slog.Int64("order.quantity", input.Quantity))
	result, err := s.inner.PlaceOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to place purchase order", slog.String("order.external_ref", input.ExternalRef))
	}
	span.SetAttributes(attribute.Int64("order.id", result.ID))
	s.metrics.recordPlaced(ctx, result.IsEquipmentOrder)
	s.logInfo(ctx, "purchase order placed", slog.Int64("order.id", result.ID), slog.Float64("order.total", result.Total()))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.PurchaseOrder, error) {
	ctx, span := s.tracer.Start(ctx, "ProcurementService.GetOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load purchase order", slog.Int64("order.id", id))
	}
	span.SetAttributes(attribute.String("order.status", string(result.Status)))
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	ctx, span := s.tracer.Start(ctx, "ProcurementService.ListOrders")
	defer span.End()

	result, err := s.inner.ListOrders(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list purchase orders")
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) RecordDelivery(ctx context.Context, shipmentID string, quantity int64) (*domain.PurchaseOrder, error) {
	ctx, span := s.tracer.Start(ctx, "ProcurementService.RecordDelivery",
		trace.WithAttributes(attribute.String("shipment.id", shipmentID), attribute.Int64("delivery.quantity", quantity)))
	defer span.End()

	s.logInfo(ctx, "recording delivery", slog.String("shipment.id", shipmentID), slog.Int64("delivery.quantity", quantity))
	result, err := s.inner.RecordDelivery(ctx, shipmentID, quantity)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to record delivery", slog.String("shipment.id", shipmentID))
	}
	s.metrics.recordDelivered(ctx, quantity)
	s.logInfo(ctx, "delivery recorded",
		slog.Int64("order.id", result.ID),
		slog.Int64("order.quantity_delivered", result.QuantityDelivered),
		slog.String("status", string(result.Status)))
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	logInfo(ctx, s.logger, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	return handleError(ctx, s.logger, span, err, msg, attrs...)
}

func logInfo(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func handleError(ctx context.Context, logger *slog.Logger, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

type serviceMetrics struct {
	ordersPlaced      metric.Int64Counter
	quantityDelivered metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("procurement.orders.placed", metric.WithDescription("Number of purchase orders placed"))
	quantityDelivered, _ := m.Int64Counter("procurement.orders.delivered_quantity", metric.WithDescription("Units dropped off by logistics"))
	return serviceMetrics{ordersPlaced: ordersPlaced, quantityDelivered: quantityDelivered}
}

func (m serviceMetrics) recordPlaced(ctx context.Context, equipment bool) {
	if m.ordersPlaced != nil {
		m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(attribute.Bool("order.equipment", equipment)))
	}
}

func (m serviceMetrics) recordDelivered(ctx context.Context, quantity int64) {
	if m.quantityDelivered != nil {
		m.quantityDelivered.Add(ctx, quantity)
	}
}

var _ ports.Service = (*Service)(nil)
