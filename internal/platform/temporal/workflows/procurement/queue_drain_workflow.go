package procurement

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	procurementactivities "github.com/Apurer/procurement-engine/internal/platform/temporal/activities/procurement"
)

const (
	// QueueDrainWorkflowName is the public identifier for registering the workflow.
	QueueDrainWorkflowName = "procurement.workflows.QueueDrain"
	// QueueDrainTaskQueuePrefix is suffixed with the instance id; the activities touch process-local state.
	QueueDrainTaskQueuePrefix = "PROCUREMENT_QUEUE"
	// DefaultIterationsPerRun bounds history size before continuing as new.
	DefaultIterationsPerRun = 500
)

// QueueDrainWorkflowInput configures one run of the drain loop.
type QueueDrainWorkflowInput struct {
	IntervalSeconds int
	Populate        bool
	MaxIterations   int
}

// TaskQueue returns the task queue owned by instanceID.
func TaskQueue(instanceID string) string {
	return QueueDrainTaskQueuePrefix + "-" + instanceID
}

// QueueDrainWorkflow populates the queue once and then drains it on an interval, continuing as new after
// MaxIterations drains. Activity failures are logged and the loop keeps going.
func QueueDrainWorkflow(ctx workflow.Context, input QueueDrainWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	populateOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	drainOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	interval := intervalOf(input.IntervalSeconds)
	iterations := input.MaxIterations
	if iterations <= 0 {
		iterations = DefaultIterationsPerRun
	}

	if input.Populate {
		var pending int
		err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, populateOptions), procurementactivities.PopulateQueueActivityName).Get(ctx, &pending)
		if err != nil {
			logger.Error("QueueDrainWorkflow populate failed", "error", err)
		} else {
			logger.Info("QueueDrainWorkflow populated queue", "pending", pending)
		}
	}

	for i := 0; i < iterations; i++ {
		if err := workflow.Sleep(ctx, interval); err != nil {
			if temporal.IsCanceledError(err) {
				logger.Info("QueueDrainWorkflow cancelled")
				return nil
			}
			return err
		}
		var result procurementactivities.DrainResult
		err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, drainOptions), procurementactivities.DrainQueueActivityName).Get(ctx, &result)
		if err != nil {
			if temporal.IsCanceledError(err) {
				logger.Info("QueueDrainWorkflow cancelled")
				return nil
			}
			logger.Error("QueueDrainWorkflow drain failed", "error", err)
			continue
		}
		if result.IntervalSeconds > 0 {
			interval = intervalOf(result.IntervalSeconds)
		}
	}

	next := input
	next.Populate = false
	next.IntervalSeconds = int(interval / time.Second)
	return workflow.NewContinueAsNewError(ctx, QueueDrainWorkflowName, next)
}

func intervalOf(seconds int) time.Duration {
	if seconds <= 0 {
		return time.Second
	}
	return time.Duration(seconds) * time.Second
}
