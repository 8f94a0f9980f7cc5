/*
Package core composes the resource isolation subsystems into a single
value.

A Core owns the tenant registry, CPU/memory/disk accounting with their
quota checkers, the CPU monitor, the thread pool manager, the cgroup
controller, the event broker, and the metrics collector. The composed
value is passed by reference wherever the original design used
process-wide singletons, preserving the single-instance invariant
structurally.

The facade the rest of the system consumes is narrow: CreateTenant,
RemoveTenant, UpdateTenantQuota, Submit, Admit, and the per-resource
quota checks. Quota threshold breaches are published on the event
broker and counted in metrics.
*/
package core
