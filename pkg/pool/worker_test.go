package pool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaobase/tenantd/pkg/queue"
	"github.com/yaobase/tenantd/pkg/types"
)

type countingTask struct {
	counter *atomic.Int64
	block   chan struct{}
	panics  bool
}

func (t *countingTask) Execute() {
	if t.block != nil {
		<-t.block
	}
	if t.panics {
		panic("task failure")
	}
	t.counter.Add(1)
}

func (t *countingTask) Valid() bool { return true }

func TestWorkerLifecycle(t *testing.T) {
	q := queue.New()
	w := NewWorker("t", q, nil)
	assert.Equal(t, types.WorkerCreated, w.State())

	require.NoError(t, w.Start())
	assert.Equal(t, types.WorkerRunning, w.State())

	w.Stop()
	assert.Equal(t, types.WorkerStopped, w.State())

	// Stopped workers are not restartable.
	assert.ErrorIs(t, w.Start(), ErrWorkerNotRestartable)
}

func TestWorkerExecutesTasks(t *testing.T) {
	q := queue.New()
	w := NewWorker("t", q, nil)
	require.NoError(t, w.Start())
	defer w.Stop()

	var counter atomic.Int64
	for i := 0; i < 10; i++ {
		require.True(t, q.Enqueue(&countingTask{counter: &counter}))
	}

	assert.Eventually(t, func() bool {
		return counter.Load() == 10 && w.ExecutedTasks() == 10
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWorkerSurvivesTaskPanic(t *testing.T) {
	q := queue.New()
	w := NewWorker("t", q, nil)
	require.NoError(t, w.Start())
	defer w.Stop()

	var counter atomic.Int64
	require.True(t, q.Enqueue(&countingTask{counter: &counter, panics: true}))
	require.True(t, q.Enqueue(&countingTask{counter: &counter}))

	assert.Eventually(t, func() bool {
		return counter.Load() == 1 && w.ExecutedTasks() == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, types.WorkerRunning, w.State())
}

func TestWorkerStopWaitsForInflightTask(t *testing.T) {
	q := queue.New()
	w := NewWorker("t", q, nil)
	require.NoError(t, w.Start())

	var counter atomic.Int64
	block := make(chan struct{})
	require.True(t, q.Enqueue(&countingTask{counter: &counter, block: block}))

	assert.Eventually(t, w.Busy, 2*time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a task was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the task completed")
	}
	assert.Equal(t, int64(1), counter.Load())
}

func TestWorkerStopBeforeStart(t *testing.T) {
	w := NewWorker("t", queue.New(), nil)
	w.Stop()
	assert.Equal(t, types.WorkerStopped, w.State())
}

func TestWorkerStopIdempotent(t *testing.T) {
	w := NewWorker("t", queue.New(), nil)
	require.NoError(t, w.Start())
	w.Stop()
	require.NotPanics(t, w.Stop)
}
