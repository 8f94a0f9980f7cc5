package resource

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/types"
)

// shareFactor is the fraction of a tenant's proportional capacity share
// actually reserved for it, leaving headroom for system use.
const shareFactor = 0.8

// slotManager is the accounting pattern shared by the memory and disk
// managers: a global capacity, a per-tenant slot map, and an aggregate
// allocated counter bounded by the capacity. Values are in the
// resource's native unit.
type slotManager struct {
	mu          sync.Mutex
	capacity    float64
	allocated   float64
	slots       map[string]*types.ResourceSlot
	initialized bool
	kind        types.ResourceKind
	logger      zerolog.Logger
}

func newSlotManager(kind types.ResourceKind) *slotManager {
	return &slotManager{
		slots:  make(map[string]*types.ResourceSlot),
		kind:   kind,
		logger: log.Component(string(kind) + "-accounting"),
	}
}

// Initialize sets the global capacity, clears the per-tenant map, and
// resets the aggregate allocated counter.
func (m *slotManager) Initialize(capacity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacity = capacity
	m.allocated = 0
	m.slots = make(map[string]*types.ResourceSlot)
	m.initialized = true
	m.logger.Info().Float64("capacity", capacity).Msg("Resource accounting initialized")
}

// Allocate reserves the tenant's share of the global capacity. The
// share is proportional to the tenant's CPU quota. Allocating an
// already-present tenant is a no-op returning success.
func (m *slotManager) Allocate(owner Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrUninitialized
	}

	id := owner.TenantID()
	if _, ok := m.slots[id]; ok {
		return nil
	}

	share := float64(owner.CPUQuotaPercent()) / 100 * m.capacity * shareFactor
	if m.allocated+share > m.capacity {
		return fmt.Errorf("%w: %s slot of %.2f for tenant %s (allocated %.2f of %.2f)",
			ErrCapacityExhausted, m.kind, share, id, m.allocated, m.capacity)
	}

	m.slots[id] = &types.ResourceSlot{Quota: share}
	m.allocated += share
	m.logger.Info().Str("tenant_id", id).Float64("quota", share).Msg("Allocated resource slot")
	return nil
}

// Usage returns the tenant's used/quota utilization ratio. The second
// return is false when no slot exists.
func (m *slotManager) Usage(tenantID string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[tenantID]
	if !ok {
		return 0, false
	}
	if slot.Quota == 0 {
		return 0, true
	}
	return slot.Used / slot.Quota, true
}

// UpdateUsage overwrites the tenant's current usage and maintains the
// monotone peak. Updates for unknown tenants are dropped.
func (m *slotManager) UpdateUsage(tenantID string, used float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[tenantID]
	if !ok {
		return
	}
	slot.Used = used
	if used > slot.Peak {
		slot.Peak = used
	}
}

// CheckQuota reports whether used + requested fits within the tenant's
// slot quota. Unknown tenants fail the check.
func (m *slotManager) CheckQuota(tenantID string, requested float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[tenantID]
	if !ok {
		return false
	}
	return slot.Used+requested <= slot.Quota
}

// Release subtracts the slot's quota from the aggregate allocated
// counter and erases the slot. Releasing an unknown tenant is a no-op.
func (m *slotManager) Release(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[tenantID]
	if !ok {
		return
	}
	m.allocated -= slot.Quota
	delete(m.slots, tenantID)
	m.logger.Info().Str("tenant_id", tenantID).Msg("Released resource slot")
}

// Slot returns a copy of the tenant's accounting record
func (m *slotManager) Slot(tenantID string) (types.ResourceSlot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[tenantID]
	if !ok {
		return types.ResourceSlot{}, false
	}
	return *slot, true
}

// Allocated returns the aggregate allocated quota
func (m *slotManager) Allocated() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocated
}

// Capacity returns the configured global capacity
func (m *slotManager) Capacity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capacity
}

// TenantIDs returns the ids of all tenants holding a slot
func (m *slotManager) TenantIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.slots))
	for id := range m.slots {
		ids = append(ids, id)
	}
	return ids
}

// MemoryManager accounts per-tenant memory in MB
type MemoryManager struct {
	*slotManager
}

// NewMemoryManager returns a memory accounting manager; capacity is in MB
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{slotManager: newSlotManager(types.ResourceMemory)}
}

// DiskManager accounts per-tenant disk in GB
type DiskManager struct {
	*slotManager
}

// NewDiskManager returns a disk accounting manager; capacity is in GB
func NewDiskManager() *DiskManager {
	return &DiskManager{slotManager: newSlotManager(types.ResourceDisk)}
}
