/*
Package tenant holds the tenant handle and the registry that owns every
tenant's lifecycle.

A Tenant is a shared handle with an immutable id and atomic quota
fields; admission, accounting, and thread groups all hold references to
the same handle and observe quota updates without locking.

The Registry is the single source of truth for lifecycle transitions.
Creation is an atomic multi-resource allocation - CPU, memory, and disk
accounting slots, CPU monitor registration, and a started thread group
of cpu_percent x 10 workers - with full reverse rollback when any step
fails: at no observable moment does a tenant exist in the registry
without all five, or vice versa. Removal releases the same resources
unconditionally, ignoring per-step failures.

Lock discipline: the registry lock is never held across calls into its
collaborators, and none of them call back into the registry. In-flight
transitions are tracked in a pending set so concurrent operations on
the same id conflict cleanly.
*/
package tenant
