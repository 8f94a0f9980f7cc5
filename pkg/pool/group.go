package pool

import (
	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/cgroup"
	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/queue"
	"github.com/yaobase/tenantd/pkg/types"
)

// Group owns one tenant's task queue and its fixed worker set. Start,
// Stop, and Resize are serialized by the owning Manager's lock; Submit
// is lock-free against workers and other submitters.
type Group struct {
	tenantID string
	queue    *queue.Queue
	cgroup   *cgroup.Controller
	workers  []*Worker
	running  bool
	logger   zerolog.Logger
}

// NewGroup constructs a stopped group with threads workers. ctrl may be
// nil when cgroup enforcement is off.
func NewGroup(tenantID string, threads int, ctrl *cgroup.Controller) *Group {
	g := &Group{
		tenantID: tenantID,
		queue:    queue.New(),
		cgroup:   ctrl,
		logger:   log.Tenant("threadgroup", tenantID),
	}
	for i := 0; i < threads; i++ {
		g.workers = append(g.workers, NewWorker(tenantID, g.queue, ctrl))
	}
	return g
}

// Start starts all workers; idempotent after the first call
func (g *Group) Start() error {
	if g.running {
		return nil
	}
	g.running = true
	for _, w := range g.workers {
		if err := w.Start(); err != nil {
			return err
		}
	}
	g.logger.Info().Int("threads", len(g.workers)).Msg("Thread group started")
	return nil
}

// Stop signals all workers to drain and joins them; idempotent.
// In-flight tasks run to completion.
func (g *Group) Stop() {
	if !g.running {
		return
	}
	g.running = false
	for _, w := range g.workers {
		w.Stop()
	}
	g.logger.Info().Msg("Thread group stopped")
}

// Submit forwards a task to the group's queue. It reports false iff the
// task is nil or invalid.
func (g *Group) Submit(task queue.Task) bool {
	return g.queue.Enqueue(task)
}

// QueueSize returns the advisory queue length
func (g *Group) QueueSize() int {
	return g.queue.Len()
}

// TotalThreads returns the worker count
func (g *Group) TotalThreads() int {
	return len(g.workers)
}

// BusyThreads returns the number of workers currently executing a task
func (g *Group) BusyThreads() int {
	busy := 0
	for _, w := range g.workers {
		if w.Busy() {
			busy++
		}
	}
	return busy
}

// ExecutedTasks returns the total tasks completed across all workers
func (g *Group) ExecutedTasks() uint64 {
	var total uint64
	for _, w := range g.workers {
		total += w.ExecutedTasks()
	}
	return total
}

// Resize grows the group by constructing and starting new workers, or
// shrinks it by stopping and removing workers from the tail. Shrinking
// is synchronous: removed workers finish their current task first.
func (g *Group) Resize(threads int) error {
	current := len(g.workers)
	if threads == current {
		return nil
	}

	if threads > current {
		for i := current; i < threads; i++ {
			w := NewWorker(g.tenantID, g.queue, g.cgroup)
			if g.running {
				if err := w.Start(); err != nil {
					return err
				}
			}
			g.workers = append(g.workers, w)
		}
	} else {
		for i := current - 1; i >= threads; i-- {
			g.workers[i].Stop()
		}
		g.workers = g.workers[:threads]
	}

	g.logger.Info().Int("from", current).Int("to", threads).Msg("Thread group resized")
	return nil
}

// Info reports the group's thread and queue state
func (g *Group) Info() types.ThreadGroupInfo {
	return types.ThreadGroupInfo{
		TotalThreads: g.TotalThreads(),
		BusyThreads:  g.BusyThreads(),
		QueueSize:    g.QueueSize(),
	}
}
