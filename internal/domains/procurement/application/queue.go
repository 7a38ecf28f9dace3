package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/application/commands"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// DefaultLeaseTTL is how long the cross-replica lease survives without renewal. Drains renew it while they run.
const DefaultLeaseTTL = time.Minute

// CommandFactory selects the command for an order's current status.
type CommandFactory interface {
	CreateCommand(order *domain.PurchaseOrder) commands.Command
}

// QueueItem is one pending unit of work. It is lost on restart and rebuilt from persisted status.
type QueueItem struct {
	OrderID     int64
	Retries     int
	LastAttempt time.Time
	LastError   string
	// abandonPending is set when the abandon write failed and must be retried without running a command.
	abandonPending bool
}

// Queue advances purchase orders one workflow step per drain.
type Queue struct {
	repo     ports.Repository
	factory  CommandFactory
	settings ports.SettingsProvider
	lease    ports.DrainLease
	leaseTTL time.Duration
	events   ports.EventPublisher
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	items    []*QueueItem
	draining atomic.Bool
}

type QueueOption func(*Queue)

// WithQueueLogger injects a slog logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithDrainLease makes every drain acquire lease first; drains that cannot acquire it are skipped.
func WithDrainLease(lease ports.DrainLease, ttl time.Duration) QueueOption {
	return func(q *Queue) {
		q.lease = lease
		if ttl > 0 {
			q.leaseTTL = ttl
		}
	}
}

// WithEventPublisher announces status changes made by the queue.
func WithEventPublisher(events ports.EventPublisher) QueueOption {
	return func(q *Queue) {
		q.events = events
	}
}

// WithQueueClock overrides the clock used to stamp attempts and status change events.
func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		q.now = now
	}
}

func NewQueue(repo ports.Repository, factory CommandFactory, settings ports.SettingsProvider, opts ...QueueOption) *Queue {
	q := &Queue{
		repo:     repo,
		factory:  factory,
		settings: settings,
		leaseTTL: DefaultLeaseTTL,
		events:   ports.NopPublisher{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	if q.logger == nil {
		q.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if q.events == nil {
		q.events = ports.NopPublisher{}
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q
}

// Enqueue schedules orderID with a fresh retry budget. Safe for concurrent use, including during a drain.
func (q *Queue) Enqueue(orderID int64) {
	q.push(&QueueItem{OrderID: orderID})
}

// QueueCount returns the number of pending items.
func (q *Queue) QueueCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the pending items for diagnostics.
func (q *Queue) Snapshot() []QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueueItem, 0, len(q.items))
	for _, item := range q.items {
		out = append(out, *item)
	}
	return out
}

// PopulateQueueFromDatabase enqueues every order whose persisted status is not terminal.
func (q *Queue) PopulateQueueFromDatabase(ctx context.Context) error {
	orders, err := q.repo.FindByStatuses(ctx, domain.NonTerminalStatuses())
	if err != nil {
		return fmt.Errorf("load in-flight purchase orders: %w", err)
	}
	for _, order := range orders {
		q.Enqueue(order.ID)
	}
	q.logger.LogAttrs(ctx, slog.LevelInfo, "purchase order queue populated from storage",
		slog.Int("orders", len(orders)), slog.Int("pending", q.QueueCount()))
	return nil
}

// ProcessQueue drains the items pending when it starts. Items enqueued meanwhile wait for the next drain.
func (q *Queue) ProcessQueue(ctx context.Context) error {
	settings := q.currentSettings()
	if !settings.ProcessingEnabled {
		return nil
	}
	if !q.draining.CompareAndSwap(false, true) {
		q.logger.LogAttrs(ctx, slog.LevelDebug, "drain already in progress, skipping")
		return nil
	}
	defer q.draining.Store(false)

	if q.lease != nil {
		held, ok, err := q.lease.TryAcquire(ctx, q.leaseTTL)
		if err != nil {
			return fmt.Errorf("acquire drain lease: %w", err)
		}
		if !ok {
			q.logger.LogAttrs(ctx, slog.LevelDebug, "drain lease held elsewhere, skipping")
			return nil
		}
		var stop func()
		ctx, stop = q.keepLease(ctx, held)
		defer func() {
			stop()
			if err := held.Release(context.WithoutCancel(ctx)); err != nil {
				q.logger.LogAttrs(ctx, slog.LevelWarn, "failed to release drain lease", slog.String("error", err.Error()))
			}
		}()
	}

	batch := q.takeAll()
	if len(batch) == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(max(settings.MaxConcurrency, 1))
	for _, item := range batch {
		g.Go(func() error {
			if ctx.Err() != nil {
				q.push(item)
				return nil
			}
			q.processItem(ctx, item, settings)
			return nil
		})
	}
	_ = g.Wait()
	q.logger.LogAttrs(ctx, slog.LevelInfo, "purchase order queue drained",
		slog.Int("processed", len(batch)), slog.Int("pending", q.QueueCount()))
	return nil
}

// keepLease renews held every third of the lease TTL while the drain runs. The returned context is cancelled
// when the lease is lost, so items not yet started go back to the queue.
func (q *Queue) keepLease(ctx context.Context, held ports.HeldLease) (context.Context, func()) {
	drainCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(max(q.leaseTTL/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-drainCtx.Done():
				return
			case <-ticker.C:
			}
			renewed, err := held.Renew(drainCtx, q.leaseTTL)
			if drainCtx.Err() != nil {
				return
			}
			if err != nil || !renewed {
				attrs := []slog.Attr{}
				if err != nil {
					attrs = append(attrs, slog.String("error", err.Error()))
				}
				q.logger.LogAttrs(drainCtx, slog.LevelWarn, "drain lease lost, stopping drain", attrs...)
				cancel()
				return
			}
		}
	}()
	return drainCtx, func() {
		cancel()
		<-done
	}
}

func (q *Queue) processItem(ctx context.Context, item *QueueItem, settings ports.Settings) {
	var order *domain.PurchaseOrder
	defer func() {
		if r := recover(); r != nil {
			q.handleFailure(ctx, item, order, settings, commands.Failed(true, fmt.Sprintf("panic: %v", r)))
		}
	}()

	order, err := q.repo.FindByID(ctx, item.OrderID)
	if errors.Is(err, ports.ErrNotFound) {
		q.logger.LogAttrs(ctx, slog.LevelWarn, "purchase order no longer exists, dropping", slog.Int64("order.id", item.OrderID))
		return
	}
	if err != nil {
		q.handleFailure(ctx, item, nil, settings, commands.Failed(true, fmt.Sprintf("load order: %v", err)))
		return
	}
	if item.abandonPending {
		if !order.Status.IsTerminal() {
			q.abandon(ctx, item, order, item.LastError)
		}
		return
	}

	cmd := q.factory.CreateCommand(order)
	result := cmd.Execute(ctx)
	if !result.Success {
		q.logger.LogAttrs(ctx, slog.LevelWarn, "workflow step failed",
			slog.Int64("order.id", order.ID),
			slog.String("command", cmd.Name()),
			slog.Bool("retry", result.ShouldRetry),
			slog.String("error", result.ErrorMessage))
		q.handleFailure(ctx, item, order, settings, result)
		return
	}
	if result.NextStatus != order.Status {
		q.logger.LogAttrs(ctx, slog.LevelInfo, "workflow step completed",
			slog.Int64("order.id", order.ID),
			slog.String("command", cmd.Name()),
			slog.String("from", string(order.Status)),
			slog.String("to", string(result.NextStatus)))
		q.publish(ctx, order, result.NextStatus, cmd.Name())
	}
	if result.Requeue {
		q.Enqueue(order.ID)
	}
}

// handleFailure applies the retry budget. A non-retryable result abandons immediately.
func (q *Queue) handleFailure(ctx context.Context, item *QueueItem, order *domain.PurchaseOrder, settings ports.Settings, result commands.Result) {
	item.LastAttempt = q.now()
	item.LastError = result.ErrorMessage
	if !result.ShouldRetry {
		q.abandon(ctx, item, order, result.ErrorMessage)
		return
	}
	item.Retries++
	if item.Retries < settings.MaxRetries {
		q.push(item)
		return
	}
	q.abandon(ctx, item, order, fmt.Sprintf("retries exhausted after %d attempts: %s", item.Retries, result.ErrorMessage))
}

func (q *Queue) abandon(ctx context.Context, item *QueueItem, order *domain.PurchaseOrder, reason string) {
	updated, err := q.repo.UpdateStatus(ctx, item.OrderID, domain.StatusAbandoned)
	if err != nil {
		q.logger.LogAttrs(ctx, slog.LevelError, "failed to abandon purchase order, will retry",
			slog.Int64("order.id", item.OrderID), slog.String("error", err.Error()))
		item.abandonPending = true
		item.LastError = reason
		q.push(item)
		return
	}
	if !updated {
		q.logger.LogAttrs(ctx, slog.LevelWarn, "purchase order vanished or already terminal before abandon", slog.Int64("order.id", item.OrderID))
		return
	}
	q.logger.LogAttrs(ctx, slog.LevelWarn, "purchase order abandoned",
		slog.Int64("order.id", item.OrderID), slog.Int("retries", item.Retries), slog.String("reason", reason))
	if order == nil {
		order = &domain.PurchaseOrder{ID: item.OrderID}
	}
	q.publish(ctx, order, domain.StatusAbandoned, reason)
}

func (q *Queue) publish(ctx context.Context, order *domain.PurchaseOrder, to domain.Status, reason string) {
	change := ports.StatusChange{
		OrderID:     order.ID,
		ExternalRef: order.ExternalRef,
		From:        order.Status,
		To:          to,
		Reason:      reason,
		OccurredAt:  q.now(),
	}
	if err := q.events.PublishStatusChanged(ctx, change); err != nil {
		q.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish status change",
			slog.Int64("order.id", order.ID), slog.String("error", err.Error()))
	}
}

func (q *Queue) push(item *QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// takeAll empties the queue and collapses duplicate order ids so each order is processed at most once per drain.
func (q *Queue) takeAll() []*QueueItem {
	q.mu.Lock()
	pending := q.items
	q.items = nil
	q.mu.Unlock()

	byOrder := make(map[int64]*QueueItem, len(pending))
	batch := make([]*QueueItem, 0, len(pending))
	for _, item := range pending {
		existing, ok := byOrder[item.OrderID]
		if !ok {
			byOrder[item.OrderID] = item
			batch = append(batch, item)
			continue
		}
		if item.Retries > existing.Retries {
			existing.Retries = item.Retries
			existing.LastAttempt = item.LastAttempt
			existing.LastError = item.LastError
		}
		existing.abandonPending = existing.abandonPending || item.abandonPending
	}
	return batch
}

func (q *Queue) currentSettings() ports.Settings {
	if q.settings == nil {
		return ports.Settings{}
	}
	return q.settings.Current()
}

var _ ports.WorkflowQueue = (*Queue)(nil)
