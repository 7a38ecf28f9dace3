package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// Driver populates the queue once and then drains it on the configured interval until cancelled.
type Driver struct {
	queue    ports.WorkflowQueue
	settings ports.SettingsProvider
	logger   *slog.Logger
}

// NewDriver wires the periodic driver. The interval is re-read from settings before every wait.
func NewDriver(queue ports.WorkflowQueue, settings ports.SettingsProvider, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Driver{queue: queue, settings: settings, logger: logger}
}

// Run blocks until ctx is cancelled. Failures of a single iteration are logged and never stop the loop.
func (d *Driver) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	if err := d.guard(ctx, "populate", d.queue.PopulateQueueFromDatabase); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "initial queue population failed", slog.String("error", err.Error()))
	}
	d.logger.LogAttrs(ctx, slog.LevelInfo, "purchase order driver started", slog.Int("pending", d.queue.QueueCount()))
	for {
		timer := time.NewTimer(d.interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelInfo, "purchase order driver stopped")
			return nil
		case <-timer.C:
		}
		if err := d.guard(ctx, "drain", d.queue.ProcessQueue); err != nil {
			d.logger.LogAttrs(ctx, slog.LevelError, "queue drain failed", slog.String("error", err.Error()))
		}
	}
}

func (d *Driver) guard(ctx context.Context, op string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op, r)
		}
	}()
	return fn(ctx)
}

func (d *Driver) interval() time.Duration {
	if d.settings == nil {
		return time.Second
	}
	return d.settings.Current().Interval()
}

var _ ports.Driver = (*Driver)(nil)
