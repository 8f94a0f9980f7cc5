/*
Package cgroup implements a thin controller over the Linux cgroup-v1
CPU subsystem for kernel-enforced per-tenant CPU shares.

Each tenant owns one directory under a configurable base (default
/sys/fs/cgroup/cpu/tenantd). The controller writes cpu.shares on
creation, appends worker OS thread ids to the tasks file, and reads
cpuacct.usage and the throttled_time line of cpu.stat for observation.
An in-memory mirror of registered thread ids makes AddThread and
RemoveThread idempotent.

When cgroup enforcement is disabled in configuration, a disabled
controller accepts every operation as a successful no-op; CPU isolation
then degrades to the cooperative, share-accounted mode provided by the
accounting layer. An enabled controller does not detect a missing
cgroup filesystem or a non-Linux host: it attempts its file operations
regardless, and Initialize fails when the base directory cannot be
created.
*/
package cgroup
