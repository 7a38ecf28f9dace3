package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
	procurementactivities "github.com/Apurer/procurement-engine/internal/platform/temporal/activities/procurement"
	procurementworkflows "github.com/Apurer/procurement-engine/internal/platform/temporal/workflows/procurement"
)

var _ ports.Driver = (*TemporalDriver)(nil)

// TemporalDriver runs the queue drain loop as a Temporal workflow served by an in-process worker.
type TemporalDriver struct {
	client     client.Client
	queue      ports.WorkflowQueue
	settings   ports.SettingsProvider
	instanceID string
	logger     *slog.Logger
}

// NewTemporalDriver wires a Temporal client to the local queue. instanceID must be unique per process.
func NewTemporalDriver(c client.Client, queue ports.WorkflowQueue, settings ports.SettingsProvider, instanceID string, logger *slog.Logger) *TemporalDriver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TemporalDriver{client: c, queue: queue, settings: settings, instanceID: instanceID, logger: logger}
}

// WorkflowID identifies the drain workflow owned by this process.
func (d *TemporalDriver) WorkflowID() string {
	return "procurement-queue-drain-" + d.instanceID
}

// Run starts the worker and the drain workflow, then blocks until ctx is cancelled or the workflow ends.
func (d *TemporalDriver) Run(ctx context.Context) error {
	if d == nil || d.client == nil {
		return errors.New("temporal driver not configured")
	}
	if d.instanceID == "" {
		return errors.New("temporal driver needs an instance id")
	}
	taskQueue := procurementworkflows.TaskQueue(d.instanceID)
	acts := procurementactivities.NewActivities(d.queue, d.settings)
	w := worker.New(d.client, taskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(procurementworkflows.QueueDrainWorkflow, workflow.RegisterOptions{Name: procurementworkflows.QueueDrainWorkflowName})
	w.RegisterActivityWithOptions(acts.PopulateQueue, activity.RegisterOptions{Name: procurementactivities.PopulateQueueActivityName})
	w.RegisterActivityWithOptions(acts.DrainQueue, activity.RegisterOptions{Name: procurementactivities.DrainQueueActivityName})
	if err := w.Start(); err != nil {
		return fmt.Errorf("start Temporal worker: %w", err)
	}
	defer w.Stop()

	interval := 1
	if d.settings != nil {
		interval = int(d.settings.Current().Interval().Seconds())
	}
	options := client.StartWorkflowOptions{
		ID:                       d.WorkflowID(),
		TaskQueue:                taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
	}
	run, err := d.client.ExecuteWorkflow(ctx, options, procurementworkflows.QueueDrainWorkflowName,
		procurementworkflows.QueueDrainWorkflowInput{IntervalSeconds: interval, Populate: true})
	if err != nil {
		return fmt.Errorf("start queue drain workflow: %w", err)
	}
	d.logger.LogAttrs(ctx, slog.LevelInfo, "queue drain workflow started",
		slog.String("workflow.id", run.GetID()),
		slog.String("workflow.run_id", run.GetRunID()),
		slog.String("taskQueue", taskQueue))

	done := make(chan error, 1)
	go func() {
		done <- run.Get(ctx, nil)
	}()
	select {
	case err := <-done:
		if ctx.Err() != nil {
			return d.cancel(ctx)
		}
		if err != nil {
			return fmt.Errorf("queue drain workflow ended: %w", err)
		}
		return nil
	case <-ctx.Done():
		return d.cancel(ctx)
	}
}

func (d *TemporalDriver) cancel(ctx context.Context) error {
	stopCtx := context.WithoutCancel(ctx)
	if err := d.client.CancelWorkflow(stopCtx, d.WorkflowID(), ""); err != nil {
		d.logger.LogAttrs(stopCtx, slog.LevelWarn, "failed to cancel queue drain workflow", slog.String("error", err.Error()))
	}
	d.logger.LogAttrs(stopCtx, slog.LevelInfo, "queue drain workflow stopped", slog.String("workflow.id", d.WorkflowID()))
	return nil
}
