package procurement

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

const (
	// PopulateQueueActivityName rebuilds the in-process queue from persisted order status.
	PopulateQueueActivityName = "procurement.activities.PopulateQueue"
	// DrainQueueActivityName runs one drain of the in-process queue.
	DrainQueueActivityName = "procurement.activities.DrainQueue"
)

// DrainResult tells the workflow how much work is left and how long to wait before the next drain.
type DrainResult struct {
	Pending         int
	IntervalSeconds int
}

// Activities exposes the in-process workflow queue to Temporal. They must run on a task queue owned by this process.
type Activities struct {
	queue    ports.WorkflowQueue
	settings ports.SettingsProvider
}

func NewActivities(queue ports.WorkflowQueue, settings ports.SettingsProvider) *Activities {
	return &Activities{queue: queue, settings: settings}
}

func (a *Activities) PopulateQueue(ctx context.Context) (int, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.queue == nil {
		logger.Error("populate activity not initialized")
		return 0, errors.New("populate activity not initialized")
	}
	if err := a.queue.PopulateQueueFromDatabase(ctx); err != nil {
		logger.Error("PopulateQueue activity failed", "error", err)
		return 0, err
	}
	pending := a.queue.QueueCount()
	logger.Info("PopulateQueue activity completed", "pending", pending)
	return pending, nil
}

func (a *Activities) DrainQueue(ctx context.Context) (DrainResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.queue == nil {
		logger.Error("drain activity not initialized")
		return DrainResult{}, errors.New("drain activity not initialized")
	}
	result := DrainResult{IntervalSeconds: a.intervalSeconds()}
	if err := a.queue.ProcessQueue(ctx); err != nil {
		logger.Error("DrainQueue activity failed", "error", err)
		return result, err
	}
	result.Pending = a.queue.QueueCount()
	return result, nil
}

func (a *Activities) intervalSeconds() int {
	if a.settings == nil {
		return 1
	}
	return int(a.settings.Current().Interval().Seconds())
}
