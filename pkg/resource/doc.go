/*
Package resource implements the per-tenant resource accounting layer.

Three peer managers track CPU, memory, and disk. Memory and disk share
the slot pattern: a global capacity, per-tenant {allocated, used, quota,
peak} records in the resource's native unit (MB for memory, GB for
disk), and an aggregate allocated counter that may never exceed the
capacity. A tenant's slot quota is proportional to its CPU quota:
cpu_percent/100 x capacity x 0.8. CPU accounting is a single scalar per
tenant: the most recently observed utilization share in [0, 1].

Quota checkers gate admission. The memory and disk checkers pass a
request iff a slot exists, used + requested fits the slot quota, and
current utilization is below the hard threshold (default 0.90); a soft
threshold (default 0.70) emits a warning through an optional breach
callback without failing. The CPU checker compares the utilization
ratio, scaled to percent, strictly against the tenant's quota
percentage.

The Monitor is a daemon goroutine that periodically samples each
registered tenant's CPU utilization through a pluggable Sampler and
feeds it into CPU accounting. A cgroup-backed sampler derives shares
from cpuacct.usage deltas when cgroup enforcement is active.

Admission checks are deliberately not serialized against usage updates:
a check may race a concurrent update and briefly admit a request that
would have been denied moments later.
*/
package resource
