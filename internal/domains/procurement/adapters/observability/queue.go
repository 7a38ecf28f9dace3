package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// Queue decorates the workflow queue with a span per drain and queue depth metrics.
type Queue struct {
	inner   ports.WorkflowQueue
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics queueMetrics
}

// NewQueue wraps a workflow queue. Enqueue and QueueCount pass through untraced.
func NewQueue(inner ports.WorkflowQueue, opts ...Option) *Queue {
	i := newInstrumentation(opts)
	return &Queue{
		inner:   inner,
		tracer:  i.tracer,
		logger:  i.logger,
		metrics: newQueueMetrics(i.meter),
	}
}

func (q *Queue) Enqueue(orderID int64) {
	q.inner.Enqueue(orderID)
}

func (q *Queue) QueueCount() int {
	return q.inner.QueueCount()
}

func (q *Queue) ProcessQueue(ctx context.Context) error {
	pending := q.inner.QueueCount()
	ctx, span := q.tracer.Start(ctx, "WorkflowQueue.ProcessQueue", trace.WithAttributes(attribute.Int("queue.pending", pending)))
	defer span.End()

	start := time.Now()
	err := q.inner.ProcessQueue(ctx)
	remaining := q.inner.QueueCount()
	span.SetAttributes(attribute.Int("queue.remaining", remaining))
	q.metrics.recordDrain(ctx, time.Since(start), remaining, err)
	if err != nil {
		return handleError(ctx, q.logger, span, err, "queue drain failed", slog.Int("queue.pending", pending))
	}
	return nil
}

func (q *Queue) PopulateQueueFromDatabase(ctx context.Context) error {
	ctx, span := q.tracer.Start(ctx, "WorkflowQueue.PopulateQueueFromDatabase")
	defer span.End()

	if err := q.inner.PopulateQueueFromDatabase(ctx); err != nil {
		return handleError(ctx, q.logger, span, err, "queue population failed")
	}
	remaining := q.inner.QueueCount()
	span.SetAttributes(attribute.Int("queue.pending", remaining))
	q.metrics.recordDepth(ctx, remaining)
	return nil
}

type queueMetrics struct {
	drains   metric.Int64Counter
	duration metric.Float64Histogram
	items    metric.Int64Gauge
}

func newQueueMetrics(m metric.Meter) queueMetrics {
	if m == nil {
		return queueMetrics{}
	}
	drains, _ := m.Int64Counter("procurement.queue.drains", metric.WithDescription("Number of queue drains by outcome"))
	duration, _ := m.Float64Histogram("procurement.queue.drain_duration", metric.WithDescription("Queue drain duration"), metric.WithUnit("s"))
	items, _ := m.Int64Gauge("procurement.queue.items", metric.WithDescription("Items pending in the workflow queue"))
	return queueMetrics{drains: drains, duration: duration, items: items}
}

func (m queueMetrics) recordDrain(ctx context.Context, elapsed time.Duration, remaining int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if m.drains != nil {
		m.drains.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds())
	}
	m.recordDepth(ctx, remaining)
}

func (m queueMetrics) recordDepth(ctx context.Context, pending int) {
	if m.items != nil {
		m.items.Record(ctx, int64(pending))
	}
}

var _ ports.WorkflowQueue = (*Queue)(nil)
