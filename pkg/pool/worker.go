package pool

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/cgroup"
	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/queue"
	"github.com/yaobase/tenantd/pkg/types"
)

// idleSleep is how long a worker sleeps after observing an empty queue
const idleSleep = time.Millisecond

// Worker owns a single long-lived execution thread draining its
// tenant's queue. The goroutine is locked to its OS thread so that the
// thread id registered with the cgroup controller stays valid for the
// worker's whole life.
//
// Lifecycle: Created -> Running -> Stopping -> Stopped. A stopped
// worker is not restartable; a dead worker is only replaced through an
// explicit group resize.
type Worker struct {
	tenantID string
	queue    *queue.Queue
	cgroup   *cgroup.Controller

	state    atomic.Int32
	busy     atomic.Bool
	executed atomic.Uint64

	stopCh chan struct{}
	doneCh chan struct{}
	logger zerolog.Logger
}

// NewWorker returns a worker in the Created state. ctrl may be nil when
// cgroup enforcement is off.
func NewWorker(tenantID string, q *queue.Queue, ctrl *cgroup.Controller) *Worker {
	w := &Worker{
		tenantID: tenantID,
		queue:    q,
		cgroup:   ctrl,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   log.Tenant("worker", tenantID),
	}
	w.state.Store(int32(types.WorkerCreated))
	return w
}

// Start launches the worker thread. Starting a worker that is not in
// the Created state returns ErrWorkerNotRestartable.
func (w *Worker) Start() error {
	if !w.state.CompareAndSwap(int32(types.WorkerCreated), int32(types.WorkerRunning)) {
		return ErrWorkerNotRestartable
	}
	go w.run()
	return nil
}

// Stop signals the worker to exit and waits for it. The in-flight task,
// if any, runs to completion first. Stop is idempotent.
func (w *Worker) Stop() {
	switch {
	case w.state.CompareAndSwap(int32(types.WorkerCreated), int32(types.WorkerStopped)):
		// Never started; nothing to join.
		close(w.doneCh)
		return
	case w.state.CompareAndSwap(int32(types.WorkerRunning), int32(types.WorkerStopping)):
		close(w.stopCh)
	}
	<-w.doneCh
}

// State returns the worker's lifecycle state
func (w *Worker) State() types.WorkerState {
	return types.WorkerState(w.state.Load())
}

// Busy reports whether the worker is currently executing a task
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// ExecutedTasks returns the number of tasks completed by this worker
func (w *Worker) ExecutedTasks() uint64 {
	return w.executed.Load()
}

func (w *Worker) run() {
	// The goroutine stays locked until it exits, at which point the
	// runtime destroys the thread and the kernel drops it from any
	// cgroup it was attached to.
	runtime.LockOSThread()

	tid := gettid()
	if w.cgroup != nil {
		if err := w.cgroup.AddThread(w.tenantID, tid); err != nil {
			w.logger.Warn().Err(err).Int("tid", tid).Msg("Failed to attach worker thread to cgroup")
		}
	}

	defer func() {
		if w.cgroup != nil {
			if err := w.cgroup.RemoveThread(w.tenantID, tid); err != nil {
				w.logger.Warn().Err(err).Int("tid", tid).Msg("Failed to detach worker thread from cgroup")
			}
		}
		w.state.Store(int32(types.WorkerStopped))
		close(w.doneCh)
	}()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		task := w.queue.Dequeue()
		if task == nil || !task.Valid() {
			time.Sleep(idleSleep)
			continue
		}

		w.busy.Store(true)
		w.execute(task)
		w.executed.Add(1)
		w.busy.Store(false)
	}
}

// execute runs one task behind a panic firewall: a failing task is
// logged and the worker keeps draining.
func (w *Worker) execute(task queue.Task) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Interface("panic", r).Msg("Task execution panicked")
		}
	}()
	task.Execute()
}
