package tenant

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/events"
	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/pool"
	"github.com/yaobase/tenantd/pkg/resource"
	"github.com/yaobase/tenantd/pkg/types"
)

// ThreadsPerCPUPercent is the fixed worker-allocation policy: a tenant
// gets ten workers per CPU quota point. The thread pool's budget guard
// is the enforcement point when the product exceeds the global budget.
const ThreadsPerCPUPercent = 10

// Deps are the collaborators a Registry drives during tenant lifecycle
// transitions. None of them may call back into the Registry.
type Deps struct {
	CPU     *resource.CPUManager
	Memory  *resource.MemoryManager
	Disk    *resource.DiskManager
	Monitor *resource.Monitor
	Pool    *pool.Manager
	Broker  *events.Broker // optional
}

// Registry is the single source of truth for tenant lifecycle. It
// guards the id -> handle map under one mutex, but releases that lock
// before calling into the accounting layer, the CPU monitor, or the
// thread pool manager; in-flight creations and removals are tracked in
// a pending set so concurrent calls for the same id conflict instead of
// interleaving.
type Registry struct {
	deps   Deps
	logger zerolog.Logger

	mu      sync.Mutex
	tenants map[string]*Tenant
	pending map[string]struct{}
}

// NewRegistry returns an empty registry over the given collaborators
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:    deps,
		logger:  log.Component("registry"),
		tenants: make(map[string]*Tenant),
		pending: make(map[string]struct{}),
	}
}

// reserve marks id as in transition. It fails when the id is live or
// already in transition.
func (r *Registry) reserve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[id]; ok {
		return fmt.Errorf("%w: %s", ErrTenantExists, id)
	}
	if _, ok := r.pending[id]; ok {
		return fmt.Errorf("%w: %s", ErrTenantExists, id)
	}
	r.pending[id] = struct{}{}
	return nil
}

func (r *Registry) unreserve(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

// Create performs the atomic multi-resource allocation for a new
// tenant: CPU slot, memory slot, disk slot, monitor registration, and
// thread group, in that order. Any step's failure reverse-rolls every
// successful step and leaves no trace of the tenant. The handle becomes
// visible only after every step succeeded.
func (r *Registry) Create(id string, q types.Quotas) error {
	t, err := newTenant(id, q)
	if err != nil {
		return err
	}
	if err := r.reserve(id); err != nil {
		return err
	}
	defer r.unreserve(id)

	if err := r.allocate(t); err != nil {
		return err
	}

	r.mu.Lock()
	r.tenants[id] = t
	r.mu.Unlock()

	r.logger.Info().
		Str("tenant_id", id).
		Int("cpu_percent", q.CPUPercent).
		Int64("memory_bytes", q.MemoryBytes).
		Int64("disk_bytes", q.DiskBytes).
		Msg("Tenant created")
	r.publish(events.EventTenantCreated, id, "tenant created")
	return nil
}

// allocate runs the forward sequence with reverse rollback on failure
func (r *Registry) allocate(t *Tenant) error {
	id := t.TenantID()

	if err := r.deps.CPU.Allocate(t); err != nil {
		return fmt.Errorf("failed to allocate CPU slot for %s: %w", id, err)
	}
	if err := r.deps.Memory.Allocate(t); err != nil {
		r.deps.CPU.Release(id)
		return fmt.Errorf("failed to allocate memory slot for %s: %w", id, err)
	}
	if err := r.deps.Disk.Allocate(t); err != nil {
		r.deps.Memory.Release(id)
		r.deps.CPU.Release(id)
		return fmt.Errorf("failed to allocate disk slot for %s: %w", id, err)
	}

	r.deps.Monitor.Register(id)

	threads := t.CPUQuotaPercent() * ThreadsPerCPUPercent
	if err := r.deps.Pool.CreateTenantGroup(id, threads); err != nil {
		r.deps.Monitor.Unregister(id)
		r.deps.Disk.Release(id)
		r.deps.Memory.Release(id)
		r.deps.CPU.Release(id)
		return fmt.Errorf("failed to create thread group for %s: %w", id, err)
	}

	return nil
}

// Get returns the shared tenant handle, or nil when absent
func (r *Registry) Get(id string) *Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tenants[id]
}

// Remove releases the tenant's CPU, memory, and disk slots, unregisters
// it from the CPU monitor, and removes its thread group -
// unconditionally, ignoring per-step failures - then unlinks the
// handle. The caller's intent is the absent state regardless of
// sub-step outcomes.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	_, ok := r.tenants[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTenantUnknown, id)
	}
	delete(r.tenants, id)
	r.pending[id] = struct{}{}
	r.mu.Unlock()
	defer r.unreserve(id)

	r.deps.CPU.Release(id)
	r.deps.Memory.Release(id)
	r.deps.Disk.Release(id)
	r.deps.Monitor.Unregister(id)
	if err := r.deps.Pool.RemoveTenantGroup(id); err != nil {
		r.logger.Warn().Err(err).Str("tenant_id", id).Msg("Thread group removal failed during tenant removal")
	}

	r.logger.Info().Str("tenant_id", id).Msg("Tenant removed")
	r.publish(events.EventTenantRemoved, id, "tenant removed")
	return nil
}

// UpdateQuota mutates the tenant's quota contract in place and resizes
// its thread group to the new worker allocation.
func (r *Registry) UpdateQuota(id string, q types.Quotas) error {
	r.mu.Lock()
	t, ok := r.tenants[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTenantUnknown, id)
	}

	if err := t.setQuotas(q); err != nil {
		return err
	}

	threads := q.CPUPercent * ThreadsPerCPUPercent
	if err := r.deps.Pool.ResizeTenantGroup(id, threads); err != nil {
		return fmt.Errorf("failed to resize thread group for %s: %w", id, err)
	}

	r.logger.Info().Str("tenant_id", id).Int("cpu_percent", q.CPUPercent).Msg("Tenant quota updated")
	r.publish(events.EventTenantQuotaUpdated, id, "tenant quota updated")
	return nil
}

// CPUQuotaPercent resolves a live tenant's CPU quota; it implements
// the accounting layer's QuotaSource.
func (r *Registry) CPUQuotaPercent(id string) (int, bool) {
	t := r.Get(id)
	if t == nil {
		return 0, false
	}
	return t.CPUQuotaPercent(), true
}

// List returns snapshots of all live tenants, ordered by id
func (r *Registry) List() []types.TenantInfo {
	r.mu.Lock()
	infos := make([]types.TenantInfo, 0, len(r.tenants))
	for _, t := range r.tenants {
		infos = append(infos, t.Info())
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Count returns the number of live tenants
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tenants)
}

func (r *Registry) publish(typ events.EventType, tenantID, msg string) {
	if r.deps.Broker == nil {
		return
	}
	r.deps.Broker.Publish(&events.Event{Type: typ, TenantID: tenantID, Message: msg})
}
