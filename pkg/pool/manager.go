package pool

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/cgroup"
	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/queue"
	"github.com/yaobase/tenantd/pkg/types"
)

// Manager partitions a bounded global worker budget among tenant thread
// groups. All mutating operations hold a single mutex; none of them
// call back into the tenant registry.
type Manager struct {
	mu           sync.Mutex
	totalThreads int
	groups       map[string]*Group
	cgroupCtrl   *cgroup.Controller
	initialized  bool
	logger       zerolog.Logger
}

// NewManager returns an uninitialized manager
func NewManager() *Manager {
	return &Manager{
		groups: make(map[string]*Group),
		logger: log.Component("threadpool"),
	}
}

// Initialize sets the global worker budget and the cgroup controller
// (nil selects a disabled controller). The first call wins; subsequent
// calls are no-ops returning success.
func (m *Manager) Initialize(totalThreads int, ctrl *cgroup.Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if ctrl == nil {
		ctrl = cgroup.NewDisabled()
	}
	if err := ctrl.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize cgroup controller: %w", err)
	}

	m.totalThreads = totalThreads
	m.cgroupCtrl = ctrl
	m.initialized = true
	m.logger.Info().
		Int("total_threads", totalThreads).
		Bool("cgroup", ctrl.Enabled()).
		Msg("Thread pool manager initialized")
	return nil
}

// CgroupEnabled reports whether kernel CPU enforcement is active
func (m *Manager) CgroupEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized && m.cgroupCtrl.Enabled()
}

func (m *Manager) allocatedLocked(except string) int {
	total := 0
	for id, g := range m.groups {
		if id == except {
			continue
		}
		total += g.TotalThreads()
	}
	return total
}

// CreateTenantGroup creates and starts a thread group of n workers for
// the tenant, creating its cgroup first when enforcement is enabled.
// The group is rejected when one already exists or when n workers would
// exceed the global budget; a group-start failure rolls the cgroup back.
func (m *Manager) CreateTenantGroup(tenantID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrUninitialized
	}
	if _, ok := m.groups[tenantID]; ok {
		return fmt.Errorf("%w: %s", ErrGroupExists, tenantID)
	}

	allocated := m.allocatedLocked("")
	if allocated+n > m.totalThreads {
		return fmt.Errorf("%w: requested %d, available %d",
			ErrThreadBudget, n, m.totalThreads-allocated)
	}

	if err := m.cgroupCtrl.CreateTenantCgroup(tenantID, cgroup.DefaultCPUShares); err != nil {
		return fmt.Errorf("failed to create cgroup for %s: %w", tenantID, err)
	}

	var ctrl *cgroup.Controller
	if m.cgroupCtrl.Enabled() {
		ctrl = m.cgroupCtrl
	}
	g := NewGroup(tenantID, n, ctrl)
	if err := g.Start(); err != nil {
		g.Stop()
		if rbErr := m.cgroupCtrl.RemoveTenantCgroup(tenantID); rbErr != nil {
			m.logger.Error().Err(rbErr).Str("tenant_id", tenantID).Msg("Cgroup rollback failed")
		}
		return fmt.Errorf("failed to start thread group for %s: %w", tenantID, err)
	}

	m.groups[tenantID] = g
	m.logger.Info().Str("tenant_id", tenantID).Int("threads", n).Msg("Created tenant thread group")
	return nil
}

// RemoveTenantGroup stops and removes the tenant's thread group and its
// cgroup.
func (m *Manager) RemoveTenantGroup(tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[tenantID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupUnknown, tenantID)
	}

	g.Stop()
	delete(m.groups, tenantID)
	if err := m.cgroupCtrl.RemoveTenantCgroup(tenantID); err != nil {
		m.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to remove tenant cgroup")
	}

	m.logger.Info().Str("tenant_id", tenantID).Msg("Removed tenant thread group")
	return nil
}

// ResizeTenantGroup changes the tenant's worker count, enforcing the
// budget against the other groups only.
func (m *Manager) ResizeTenantGroup(tenantID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[tenantID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupUnknown, tenantID)
	}

	others := m.allocatedLocked(tenantID)
	if others+n > m.totalThreads {
		return fmt.Errorf("%w: requested %d, available %d",
			ErrThreadBudget, n, m.totalThreads-others)
	}

	return g.Resize(n)
}

// Submit forwards a task to the tenant's queue
func (m *Manager) Submit(tenantID string, task queue.Task) error {
	m.mu.Lock()
	g, ok := m.groups[tenantID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupUnknown, tenantID)
	}
	if !g.Submit(task) {
		return ErrInvalidTask
	}
	return nil
}

// TenantThreadInfo reports the tenant group's thread and queue state
func (m *Manager) TenantThreadInfo(tenantID string) (types.ThreadGroupInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[tenantID]
	if !ok {
		return types.ThreadGroupInfo{}, false
	}
	return g.Info(), true
}

// SystemThreadInfo reports the partitioning of the global budget
func (m *Manager) SystemThreadInfo() types.SystemThreadInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	allocated := m.allocatedLocked("")
	return types.SystemThreadInfo{
		TotalThreads:     m.totalThreads,
		AllocatedThreads: allocated,
		SystemThreads:    m.totalThreads - allocated,
	}
}

// ExecutedTasks returns the tenant group's completed task count
func (m *Manager) ExecutedTasks(tenantID string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[tenantID]
	if !ok {
		return 0, false
	}
	return g.ExecutedTasks(), true
}

// TenantIDs returns the ids of all tenants holding a thread group
func (m *Manager) TenantIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.groups))
	for id := range m.groups {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown stops every group, drops the cgroup controller, and clears
// the initialized flag so the manager can be initialized again.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}

	for _, g := range m.groups {
		g.Stop()
	}
	m.groups = make(map[string]*Group)

	if err := m.cgroupCtrl.Close(); err != nil {
		m.logger.Error().Err(err).Msg("Failed to close cgroup controller")
	}
	m.cgroupCtrl = nil
	m.initialized = false
	m.logger.Info().Msg("Thread pool manager shut down")
}
