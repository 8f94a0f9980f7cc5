package cgroup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(filepath.Join(t.TempDir(), "cpu", "tenantd"))
	require.NoError(t, c.Initialize())
	return c
}

func TestInitializeCreatesBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "cpu", "tenantd")
	c := NewController(base)
	require.NoError(t, c.Initialize())

	fi, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, os.FileMode(0750), fi.Mode().Perm())
}

func TestCreateTenantCgroupWritesShares(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.CreateTenantCgroup("c", DefaultCPUShares))

	data, err := os.ReadFile(filepath.Join(c.BasePath(), "c", "cpu.shares"))
	require.NoError(t, err)
	assert.Equal(t, "1024\n", string(data))
}

func TestRemoveTenantCgroup(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.CreateTenantCgroup("c", DefaultCPUShares))
	require.NoError(t, c.RemoveTenantCgroup("c"))

	_, err := os.Stat(filepath.Join(c.BasePath(), "c"))
	assert.True(t, os.IsNotExist(err))
}

func TestSetCPUShares(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.CreateTenantCgroup("t", DefaultCPUShares))
	require.NoError(t, c.SetCPUShares("t", 2048))

	data, err := os.ReadFile(filepath.Join(c.BasePath(), "t", "cpu.shares"))
	require.NoError(t, err)
	assert.Equal(t, "2048\n", string(data))
}

func TestAddThreadIdempotent(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.CreateTenantCgroup("t", DefaultCPUShares))

	require.NoError(t, c.AddThread("t", 4242))
	require.NoError(t, c.AddThread("t", 4242))
	assert.Equal(t, []int{4242}, c.Threads("t"))

	data, err := os.ReadFile(filepath.Join(c.BasePath(), "t", "tasks"))
	require.NoError(t, err)
	assert.Equal(t, "4242\n", string(data))
}

func TestAddThreadUnknownTenant(t *testing.T) {
	c := newTestController(t)
	assert.Error(t, c.AddThread("ghost", 1))
}

func TestRemoveThread(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.CreateTenantCgroup("t", DefaultCPUShares))
	require.NoError(t, c.AddThread("t", 1))
	require.NoError(t, c.AddThread("t", 2))

	require.NoError(t, c.RemoveThread("t", 1))
	assert.Equal(t, []int{2}, c.Threads("t"))

	// Removing an absent tid is a no-op.
	require.NoError(t, c.RemoveThread("t", 99))
}

func TestCPUUsage(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.CreateTenantCgroup("t", DefaultCPUShares))
	require.NoError(t, os.WriteFile(filepath.Join(c.BasePath(), "t", "cpuacct.usage"), []byte("123456789\n"), 0644))

	n, err := c.CPUUsage("t")
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), n)
}

func TestThrottledTime(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.CreateTenantCgroup("t", DefaultCPUShares))
	stat := "nr_periods 100\nnr_throttled 4\nthrottled_time 987654321\n"
	require.NoError(t, os.WriteFile(filepath.Join(c.BasePath(), "t", "cpu.stat"), []byte(stat), 0644))

	n, err := c.ThrottledTime("t")
	require.NoError(t, err)
	assert.Equal(t, uint64(987654321), n)
}

func TestInvalidTenantID(t *testing.T) {
	c := newTestController(t)
	assert.Error(t, c.CreateTenantCgroup("a/b", DefaultCPUShares))
	assert.Error(t, c.CreateTenantCgroup("", DefaultCPUShares))
}

func TestDisabledControllerIsNoop(t *testing.T) {
	c := NewDisabled()
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Initialize())
	assert.NoError(t, c.CreateTenantCgroup("t", DefaultCPUShares))
	assert.NoError(t, c.AddThread("t", 1))
	assert.NoError(t, c.RemoveThread("t", 1))
	usage, err := c.CPUUsage("t")
	assert.NoError(t, err)
	assert.Zero(t, usage)
	assert.NoError(t, c.RemoveTenantCgroup("t"))
	assert.NoError(t, c.Close())
}

func TestCloseRemovesAllTenantCgroups(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.CreateTenantCgroup("a", DefaultCPUShares))
	require.NoError(t, c.CreateTenantCgroup("b", DefaultCPUShares))

	require.NoError(t, c.Close())

	_, errA := os.Stat(filepath.Join(c.BasePath(), "a"))
	_, errB := os.Stat(filepath.Join(c.BasePath(), "b"))
	assert.True(t, os.IsNotExist(errA))
	assert.True(t, os.IsNotExist(errB))
}
