package procurement

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
	procurementactivities "github.com/Apurer/procurement-engine/internal/platform/temporal/activities/procurement"
)

type fakeQueue struct {
	populates atomic.Int32
	drains    atomic.Int32
	failDrain bool
}

func (q *fakeQueue) Enqueue(int64) {}

func (q *fakeQueue) QueueCount() int { return 2 }

func (q *fakeQueue) PopulateQueueFromDatabase(context.Context) error {
	q.populates.Add(1)
	return nil
}

func (q *fakeQueue) ProcessQueue(context.Context) error {
	if q.drains.Add(1) == 1 && q.failDrain {
		return errors.New("lease backend down")
	}
	return nil
}

func newEnv(t *testing.T, queue *fakeQueue) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := procurementactivities.NewActivities(queue, ports.StaticSettings{IntervalSeconds: 3})
	env.RegisterWorkflowWithOptions(QueueDrainWorkflow, workflow.RegisterOptions{Name: QueueDrainWorkflowName})
	env.RegisterActivityWithOptions(acts.PopulateQueue, activity.RegisterOptions{Name: procurementactivities.PopulateQueueActivityName})
	env.RegisterActivityWithOptions(acts.DrainQueue, activity.RegisterOptions{Name: procurementactivities.DrainQueueActivityName})
	return env
}

func TestQueueDrainWorkflow_PopulatesOnceThenContinuesAsNew(t *testing.T) {
	queue := &fakeQueue{failDrain: true}
	env := newEnv(t, queue)

	env.ExecuteWorkflow(QueueDrainWorkflow, QueueDrainWorkflowInput{IntervalSeconds: 1, Populate: true, MaxIterations: 4})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	require.True(t, workflow.IsContinueAsNewError(err))
	require.Equal(t, int32(1), queue.populates.Load())
	require.Equal(t, int32(4), queue.drains.Load())
}

func TestQueueDrainWorkflow_CancelStopsCleanly(t *testing.T) {
	queue := &fakeQueue{}
	env := newEnv(t, queue)
	env.RegisterDelayedCallback(func() {
		env.CancelWorkflow()
	}, time.Second)

	env.ExecuteWorkflow(QueueDrainWorkflow, QueueDrainWorkflowInput{IntervalSeconds: 60, MaxIterations: 10})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.Zero(t, queue.populates.Load())
}
