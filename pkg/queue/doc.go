/*
Package queue implements the per-tenant lock-free task queue.

The queue is an unbounded Michael–Scott linked FIFO shared by multiple
producers (request submitters) and multiple consumers (the owning
tenant's workers). Head always points at a sentinel node; tail may lag
the true last node by one step between the two enqueue CAS operations,
and both paths help advance it.

Per-queue ordering is FIFO: enqueues are linearized at the tail.next
compare-and-swap. Across queues there is no ordering.

Unlike implementations in manually managed languages, no hazard-pointer
or epoch scheme is needed here: dequeued nodes are reclaimed by the Go
garbage collector only once unreachable, which rules out use-after-free
and ABA on recycled node addresses.
*/
package queue
