/*
Package api exposes the HTTP admin surface of tenantd.

Endpoints cover tenant CRUD and quota updates, per-tenant thread and
accounting introspection, synthetic task submission through the
admission gate, the system thread budget, liveness, and Prometheus
metrics. Tenant specifications are mirrored into the catalog when one
is attached, so the demo server can replay them at boot.

A per-tenant connection cap bounds concurrent submission sessions; a
tenant at its cap receives 429 before admission runs.
*/
package api
