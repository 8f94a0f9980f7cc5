/*
Package events provides an in-process publish/subscribe broker for
tenant lifecycle and quota events.

Producers (the registry, and the breach callbacks the core installs on
the memory and disk quota checkers) publish fire-and-forget events;
subscribers receive them on buffered channels. A subscriber that falls
behind loses events rather than blocking the broker. Event types cover
tenant creation, removal, quota updates, and soft and hard quota
breaches. A task.panicked type is also defined, but nothing publishes
it: workers only log task panics.
*/
package events
