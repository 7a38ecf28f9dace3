package ports

import "context"

// WorkflowQueue drives purchase orders through their workflow steps.
type WorkflowQueue interface {
	Enqueue(orderID int64)
	ProcessQueue(ctx context.Context) error
	PopulateQueueFromDatabase(ctx context.Context) error
	QueueCount() int
}

// Driver keeps the queue draining until ctx is cancelled.
type Driver interface {
	Run(ctx context.Context) error
}
