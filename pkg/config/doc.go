/*
Package config loads tenantd's server configuration.

Two formats are supported:

  - A key=value configuration file (one pair per line, whitespace
    trimmed, unknown keys ignored silently, lines without '=' skipped).
    Recognized keys: enable_cgroup, total_threads, total_memory_mb,
    total_disk_gb, monitoring_interval_ms.
  - A YAML tenant manifest declaring tenants to create at boot.

Malformed integer values and unrecognized boolean spellings fall back to
the configured defaults rather than failing the load.
*/
package config
