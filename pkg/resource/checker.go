package resource

import (
	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/log"
)

// Default utilization thresholds for the quota checkers
const (
	DefaultSoftLimit = 0.70
	DefaultHardLimit = 0.90
)

// BreachFunc is invoked when a tenant crosses a checker threshold.
// usage is the tenant's utilization ratio and quota the slot quota in
// the resource's native unit.
type BreachFunc func(tenantID string, usage float64, quota float64)

// SlotChecker gates admission against one slot-based accounting manager
// (memory or disk) with soft and hard utilization thresholds.
type SlotChecker struct {
	usage    func(tenantID string) (float64, bool)
	check    func(tenantID string, requested float64) bool
	quota    func(tenantID string) (float64, bool)
	soft     float64
	hard     float64
	onSoft   BreachFunc
	onHard   BreachFunc
	logger   zerolog.Logger
	resource string
}

// NewMemoryChecker returns a checker over the memory manager with the
// default thresholds.
func NewMemoryChecker(m *MemoryManager) *SlotChecker {
	return newSlotChecker(m.slotManager, "memory")
}

// NewDiskChecker returns a checker over the disk manager with the
// default thresholds.
func NewDiskChecker(m *DiskManager) *SlotChecker {
	return newSlotChecker(m.slotManager, "disk")
}

func newSlotChecker(m *slotManager, resource string) *SlotChecker {
	return &SlotChecker{
		usage: m.Usage,
		check: m.CheckQuota,
		quota: func(id string) (float64, bool) {
			slot, ok := m.Slot(id)
			if !ok {
				return 0, false
			}
			return slot.Quota, true
		},
		soft:     DefaultSoftLimit,
		hard:     DefaultHardLimit,
		logger:   log.Component(resource + "-checker"),
		resource: resource,
	}
}

// SetThresholds overrides the soft and hard utilization thresholds
func (c *SlotChecker) SetThresholds(soft, hard float64) {
	c.soft = soft
	c.hard = hard
}

// OnSoftBreach installs the callback invoked when utilization crosses
// the soft threshold. Soft breaches warn but do not fail the check.
func (c *SlotChecker) OnSoftBreach(fn BreachFunc) { c.onSoft = fn }

// OnHardBreach installs the callback invoked when utilization crosses
// the hard threshold, and also when a request does not fit the slot
// quota.
func (c *SlotChecker) OnHardBreach(fn BreachFunc) { c.onHard = fn }

// CheckQuota reports whether the tenant may consume requested more
// units of the resource. The check passes iff a slot exists, the
// request fits the slot quota, and current utilization is below the
// hard threshold.
func (c *SlotChecker) CheckQuota(tenantID string, requested float64) bool {
	usage, ok := c.usage(tenantID)
	if !ok {
		return false
	}
	quota, _ := c.quota(tenantID)

	if !c.check(tenantID, requested) {
		c.logger.Warn().
			Str("tenant_id", tenantID).
			Float64("usage", usage).
			Float64("requested", requested).
			Msg("Quota exceeded")
		if c.onHard != nil {
			c.onHard(tenantID, usage, quota)
		}
		return false
	}

	if usage >= c.hard {
		c.logger.Warn().
			Str("tenant_id", tenantID).
			Float64("usage", usage).
			Msg("Hard limit reached")
		if c.onHard != nil {
			c.onHard(tenantID, usage, quota)
		}
		return false
	}

	if usage >= c.soft {
		c.logger.Warn().
			Str("tenant_id", tenantID).
			Float64("usage", usage).
			Msg("Usage near soft limit")
		if c.onSoft != nil {
			c.onSoft(tenantID, usage, quota)
		}
	}

	return true
}

// QuotaSource resolves a tenant's CPU quota percentage. The registry
// implements this; checkers must not reach back into it while it holds
// its lock, so the lookup is a plain read of the shared handle.
type QuotaSource interface {
	CPUQuotaPercent(tenantID string) (int, bool)
}

// CPUChecker gates admission on CPU utilization. The tenant's quota is
// a percentage of the host CPU in [0, 100]; the observed utilization
// ratio is converted to the same scale at the check boundary.
type CPUChecker struct {
	cpu    *CPUManager
	quotas QuotaSource
	logger zerolog.Logger
}

// NewCPUChecker returns a CPU admission checker
func NewCPUChecker(cpu *CPUManager, quotas QuotaSource) *CPUChecker {
	return &CPUChecker{
		cpu:    cpu,
		quotas: quotas,
		logger: log.Component("cpu-checker"),
	}
}

// CheckQuota reports whether the tenant's current CPU utilization is
// strictly below its quota.
func (c *CPUChecker) CheckQuota(tenantID string) bool {
	usage, ok := c.cpu.Usage(tenantID)
	if !ok {
		return false
	}
	quota, ok := c.quotas.CPUQuotaPercent(tenantID)
	if !ok {
		return false
	}
	if usage*100 >= float64(quota) {
		c.logger.Warn().
			Str("tenant_id", tenantID).
			Float64("usage_percent", usage*100).
			Int("quota_percent", quota).
			Msg("CPU quota exceeded")
		return false
	}
	return true
}

// UpdateUsage forwards an observed utilization share into CPU accounting
func (c *CPUChecker) UpdateUsage(tenantID string, usage float64) {
	c.cpu.UpdateUsage(tenantID, usage)
}
