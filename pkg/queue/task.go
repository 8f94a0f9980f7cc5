package queue

// Task is an opaque unit of work. A task is owned by the queue it was
// enqueued on until dequeued, then exclusively by the worker executing
// it; it is dropped after Execute returns.
type Task interface {
	// Execute drives the task's side effects. A panic inside Execute is
	// contained by the executing worker.
	Execute()

	// Valid is a cheap pre-dispatch guard. Invalid tasks are rejected at
	// the enqueue boundary and skipped by workers.
	Valid() bool
}

// Func adapts a plain function to the Task interface
type Func func()

// Execute runs the wrapped function
func (f Func) Execute() { f() }

// Valid reports whether the wrapped function is non-nil
func (f Func) Valid() bool { return f != nil }
