package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaobase/tenantd/pkg/pool"
	"github.com/yaobase/tenantd/pkg/resource"
	"github.com/yaobase/tenantd/pkg/types"
)

const (
	gib = int64(1) << 30
)

type fixture struct {
	cpu     *resource.CPUManager
	mem     *resource.MemoryManager
	disk    *resource.DiskManager
	monitor *resource.Monitor
	pool    *pool.Manager
	reg     *Registry
}

func newFixture(t *testing.T, totalThreads, totalMemoryMB, totalDiskGB int) *fixture {
	t.Helper()

	f := &fixture{
		cpu:  resource.NewCPUManager(),
		mem:  resource.NewMemoryManager(),
		disk: resource.NewDiskManager(),
		pool: pool.NewManager(),
	}
	f.monitor = resource.NewMonitor(f.cpu, nil, time.Hour)
	f.mem.Initialize(float64(totalMemoryMB))
	f.disk.Initialize(float64(totalDiskGB))
	require.NoError(t, f.pool.Initialize(totalThreads, nil))
	t.Cleanup(f.pool.Shutdown)

	f.reg = NewRegistry(Deps{
		CPU:     f.cpu,
		Memory:  f.mem,
		Disk:    f.disk,
		Monitor: f.monitor,
		Pool:    f.pool,
	})
	return f
}

func (f *fixture) hasSlots(id string) (cpu, mem, disk, monitor, group bool) {
	_, cpu = f.cpu.Usage(id)
	_, mem = f.mem.Slot(id)
	_, disk = f.disk.Slot(id)
	monitor = f.monitor.Registered(id)
	_, group = f.pool.TenantThreadInfo(id)
	return
}

func TestCreateAllocatesEverything(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)

	require.NoError(t, f.reg.Create("t1", types.Quotas{CPUPercent: 4, MemoryBytes: gib, DiskBytes: 10 * gib}))

	cpu, mem, disk, monitor, group := f.hasSlots("t1")
	assert.True(t, cpu, "CPU slot")
	assert.True(t, mem, "memory slot")
	assert.True(t, disk, "disk slot")
	assert.True(t, monitor, "monitor registration")
	assert.True(t, group, "thread group")

	info, ok := f.pool.TenantThreadInfo("t1")
	require.True(t, ok)
	assert.Equal(t, 4*ThreadsPerCPUPercent, info.TotalThreads)

	handle := f.reg.Get("t1")
	require.NotNil(t, handle)
	assert.Equal(t, "t1", handle.TenantID())
	assert.Equal(t, 4, handle.CPUQuotaPercent())
}

func TestCreateRejectsDuplicates(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	require.NoError(t, f.reg.Create("t", types.Quotas{CPUPercent: 1}))
	assert.ErrorIs(t, f.reg.Create("t", types.Quotas{CPUPercent: 1}), ErrTenantExists)
}

func TestCreateRejectsInvalidSpec(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	assert.ErrorIs(t, f.reg.Create("", types.Quotas{CPUPercent: 1}), ErrInvalidTenant)
	assert.ErrorIs(t, f.reg.Create("t", types.Quotas{CPUPercent: -1}), ErrInvalidTenant)
	assert.ErrorIs(t, f.reg.Create("t", types.Quotas{MemoryBytes: -1}), ErrInvalidTenant)
}

// A tenant whose cpu quota demands more workers than the global budget
// must fail creation entirely, leaving no trace behind.
func TestCreateRollsBackOnThreadBudget(t *testing.T) {
	f := newFixture(t, 10, 8192, 100)

	// cpu=2 -> 20 workers > 10-thread budget.
	err := f.reg.Create("a", types.Quotas{CPUPercent: 2, MemoryBytes: gib, DiskBytes: 10 * gib})
	require.ErrorIs(t, err, pool.ErrThreadBudget)

	assert.Nil(t, f.reg.Get("a"))
	cpu, mem, disk, monitor, group := f.hasSlots("a")
	assert.False(t, cpu)
	assert.False(t, mem)
	assert.False(t, disk)
	assert.False(t, monitor)
	assert.False(t, group)
}

// With a tiny memory capacity the memory step fails and the CPU slot
// allocated before it must be rolled back.
func TestCreateRollsBackOnMemoryCapacity(t *testing.T) {
	f := newFixture(t, 1200, 64, 10000)

	// 90% cpu fits: 0.9 * 64 * 0.8 = 46.08 MB of 64.
	require.NoError(t, f.reg.Create("big", types.Quotas{CPUPercent: 90}))
	// The next 90% tenant pushes memory past its cap.
	err := f.reg.Create("bigger", types.Quotas{CPUPercent: 90})
	require.ErrorIs(t, err, resource.ErrCapacityExhausted)

	assert.Nil(t, f.reg.Get("bigger"))
	cpu, _, _, _, _ := f.hasSlots("bigger")
	assert.False(t, cpu, "CPU slot must be rolled back")
}

func TestRemoveReleasesEverything(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	require.NoError(t, f.reg.Create("t", types.Quotas{CPUPercent: 2, MemoryBytes: gib, DiskBytes: 10 * gib}))

	memBefore := f.mem.Allocated()
	require.NotZero(t, memBefore)

	require.NoError(t, f.reg.Remove("t"))

	assert.Nil(t, f.reg.Get("t"))
	cpu, mem, disk, monitor, group := f.hasSlots("t")
	assert.False(t, cpu)
	assert.False(t, mem)
	assert.False(t, disk)
	assert.False(t, monitor)
	assert.False(t, group)
	assert.Zero(t, f.mem.Allocated())
}

func TestRemoveUnknown(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	assert.ErrorIs(t, f.reg.Remove("ghost"), ErrTenantUnknown)
}

func TestRemoveAfterUsageUpdates(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	require.NoError(t, f.reg.Create("t", types.Quotas{CPUPercent: 2}))

	f.cpu.UpdateUsage("t", 0.4)
	f.mem.UpdateUsage("t", 50)
	f.disk.UpdateUsage("t", 3)

	require.NoError(t, f.reg.Remove("t"))
	assert.Nil(t, f.reg.Get("t"))
}

func TestUpdateQuotaResizesGroup(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	require.NoError(t, f.reg.Create("t", types.Quotas{CPUPercent: 2, MemoryBytes: gib, DiskBytes: 10 * gib}))

	require.NoError(t, f.reg.UpdateQuota("t", types.Quotas{CPUPercent: 4, MemoryBytes: 2 * gib, DiskBytes: 20 * gib}))

	handle := f.reg.Get("t")
	require.NotNil(t, handle)
	assert.Equal(t, 4, handle.CPUQuotaPercent())
	assert.Equal(t, 2*gib, handle.MemoryQuotaBytes())

	info, ok := f.pool.TenantThreadInfo("t")
	require.True(t, ok)
	assert.Equal(t, 40, info.TotalThreads)
}

func TestUpdateQuotaUnknown(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	assert.ErrorIs(t, f.reg.UpdateQuota("ghost", types.Quotas{CPUPercent: 1}), ErrTenantUnknown)
}

func TestListIsSorted(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	require.NoError(t, f.reg.Create("b", types.Quotas{CPUPercent: 1}))
	require.NoError(t, f.reg.Create("a", types.Quotas{CPUPercent: 1}))

	infos := f.reg.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].ID)
	assert.Equal(t, "b", infos[1].ID)
}

func TestQuotaSource(t *testing.T) {
	f := newFixture(t, 120, 8192, 100)
	require.NoError(t, f.reg.Create("t", types.Quotas{CPUPercent: 7}))

	q, ok := f.reg.CPUQuotaPercent("t")
	require.True(t, ok)
	assert.Equal(t, 7, q)

	_, ok = f.reg.CPUQuotaPercent("ghost")
	assert.False(t, ok)
}

// Every accounting slot must belong to a live tenant and every live
// tenant must hold all slots, across a mixed create/remove sequence.
func TestRegistryAccountingConsistency(t *testing.T) {
	f := newFixture(t, 1200, 8192, 100)

	require.NoError(t, f.reg.Create("a", types.Quotas{CPUPercent: 2}))
	require.NoError(t, f.reg.Create("b", types.Quotas{CPUPercent: 3}))
	require.NoError(t, f.reg.Remove("a"))
	require.NoError(t, f.reg.Create("c", types.Quotas{CPUPercent: 1}))

	live := map[string]bool{"b": true, "c": true}
	for id := range live {
		cpu, mem, disk, monitor, group := f.hasSlots(id)
		assert.True(t, cpu && mem && disk && monitor && group, "tenant %s must hold all slots", id)
	}
	for _, id := range f.mem.TenantIDs() {
		assert.True(t, live[id], "memory slot %s has no registry entry", id)
	}
	for _, id := range f.pool.TenantIDs() {
		assert.True(t, live[id], "thread group %s has no registry entry", id)
	}
}
