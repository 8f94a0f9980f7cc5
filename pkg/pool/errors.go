package pool

import "errors"

var (
	// ErrUninitialized is returned for operations before Initialize
	ErrUninitialized = errors.New("thread pool manager not initialized")

	// ErrGroupExists is returned when creating a duplicate thread group
	ErrGroupExists = errors.New("tenant thread group already exists")

	// ErrGroupUnknown is returned for operations on an absent group
	ErrGroupUnknown = errors.New("tenant thread group not found")

	// ErrThreadBudget is returned when a create or resize would push the
	// sum of group sizes past the global worker budget.
	ErrThreadBudget = errors.New("insufficient threads in global budget")

	// ErrInvalidTask is returned when submitting a nil or invalid task
	ErrInvalidTask = errors.New("task is nil or invalid")

	// ErrWorkerNotRestartable is returned when starting a stopped worker
	ErrWorkerNotRestartable = errors.New("stopped worker cannot be restarted")
)
