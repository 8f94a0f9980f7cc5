package queue

import (
	"sync/atomic"
)

// node is a linked-list cell holding at most one task. The node at head
// is always a sentinel whose task slot is never consumed.
type node struct {
	task Task
	next atomic.Pointer[node]
}

// Queue is an unbounded lock-free multi-producer multi-consumer FIFO
// (Michael–Scott). Enqueue and Dequeue never block; Len and Empty are
// advisory. The zero value is not usable; call New.
//
// Node reclamation is left to the garbage collector: a dequeued sentinel
// becomes unreachable once no concurrent operation holds a pointer into
// it, so the ABA hazard of manual reclamation cannot arise.
type Queue struct {
	head atomic.Pointer[node]
	tail atomic.Pointer[node]
	size atomic.Int64
}

// New returns an empty queue with a single sentinel node
func New() *Queue {
	q := &Queue{}
	sentinel := &node{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue appends task to the queue. It returns false without mutating
// the queue iff the task is nil or invalid.
func (q *Queue) Enqueue(task Task) bool {
	if task == nil || !task.Valid() {
		return false
	}

	n := &node{task: task}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				// Failure to advance tail is benign; another
				// operation will help.
				q.tail.CompareAndSwap(tail, n)
				q.size.Add(1)
				return true
			}
		} else {
			// Tail is lagging; help advance it and retry.
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// Dequeue removes and returns the oldest task, or nil if the queue was
// observed empty.
func (q *Queue) Dequeue() Task {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				return nil
			}
			// Tail is lagging behind an in-flight enqueue.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		// Read the task from next before the CAS: after the swing the
		// old head is garbage and next is the new sentinel.
		task := next.task
		if q.head.CompareAndSwap(head, next) {
			q.size.Add(-1)
			return task
		}
	}
}

// Len returns an advisory approximate count of queued tasks
func (q *Queue) Len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Empty reports whether the queue was observed empty
func (q *Queue) Empty() bool {
	return q.Len() == 0
}
