package resource

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/log"
)

// CPUManager tracks per-tenant CPU utilization. Unlike memory and disk,
// CPU carries no per-slot quota structure: the record is a single scalar
// in [0, 1] holding the most recently observed utilization share.
type CPUManager struct {
	mu     sync.Mutex
	usage  map[string]float64
	logger zerolog.Logger
}

// NewCPUManager returns an initialized CPU accounting manager
func NewCPUManager() *CPUManager {
	return &CPUManager{
		usage:  make(map[string]float64),
		logger: log.Component("cpu-accounting"),
	}
}

// Initialize clears all per-tenant records
func (m *CPUManager) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = make(map[string]float64)
}

// Allocate creates the tenant's usage record. Allocating an
// already-present tenant is a no-op returning success.
func (m *CPUManager) Allocate(owner Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := owner.TenantID()
	if _, ok := m.usage[id]; ok {
		return nil
	}
	m.usage[id] = 0
	m.logger.Debug().Str("tenant_id", id).Msg("Allocated CPU accounting slot")
	return nil
}

// Usage returns the tenant's most recent utilization share in [0, 1].
// The second return is false when no record exists.
func (m *CPUManager) Usage(tenantID string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.usage[tenantID]
	return v, ok
}

// UpdateUsage overwrites the tenant's observed utilization share.
// Updates for unknown tenants are dropped.
func (m *CPUManager) UpdateUsage(tenantID string, usage float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usage[tenantID]; !ok {
		return
	}
	m.usage[tenantID] = usage
}

// Release erases the tenant's usage record
func (m *CPUManager) Release(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.usage, tenantID)
}

// Usages returns a copy of all per-tenant utilization records
func (m *CPUManager) Usages() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.usage))
	for id, v := range m.usage {
		out[id] = v
	}
	return out
}
