/*
Package metrics provides Prometheus instrumentation for tenantd.

Gauges mirror the core's live state: tenant counts, per-tenant resource
utilization and slot quotas, thread budget partitioning, queue lengths,
and executed-task counts. Counters track admission outcomes and quota
threshold breaches; histograms time tenant lifecycle operations and
task submission.

A Collector daemon refreshes the mirrored gauges on a fixed interval.
The Handler function exposes the standard /metrics endpoint for
scraping.
*/
package metrics
