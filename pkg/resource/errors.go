package resource

import "errors"

var (
	// ErrUninitialized is returned when a manager is used before Initialize
	ErrUninitialized = errors.New("resource manager not initialized")

	// ErrCapacityExhausted is returned when allocating a slot would push
	// the sum of tenant quotas past the configured global capacity.
	ErrCapacityExhausted = errors.New("global resource capacity exhausted")
)

// Owner is the narrow view of a tenant the accounting layer needs
type Owner interface {
	TenantID() string
	CPUQuotaPercent() int
}
