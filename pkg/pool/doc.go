/*
Package pool implements the per-tenant worker pools and the manager
that partitions the bounded global worker budget among them.

A Worker is one long-lived goroutine locked to its OS thread, draining
its tenant's lock-free queue: dequeue, validate, execute behind a panic
firewall, count, repeat; an empty queue earns a one-millisecond sleep.
Workers register their thread id with the cgroup controller on start
and deregister on stop. A stopped worker is never restarted.

A Group binds one tenant to one queue and a fixed worker set. Resize
grows by starting fresh workers and shrinks synchronously from the
tail, letting removed workers finish their current task.

The Manager holds the tenant_id -> group map under a single mutex and
enforces the budget invariant: the sum of all group sizes never exceeds
the configured total. Group creation orders cgroup creation before
group start and rolls the cgroup back if the start fails. Shutdown
stops every group, releases the cgroup controller, and returns the
manager to its uninitialized state.
*/
package pool
