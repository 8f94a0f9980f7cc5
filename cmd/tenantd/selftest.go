package main

import (
	"errors"
	"fmt"

	"github.com/yaobase/tenantd/pkg/admission"
	"github.com/yaobase/tenantd/pkg/config"
	"github.com/yaobase/tenantd/pkg/core"
	"github.com/yaobase/tenantd/pkg/types"
)

const testGiB = int64(1) << 30

// runSelfTest exercises the core scenarios in process and reports
// PASSED/FAILED per group, mirroring the behavior behind the --test
// flag of the original launcher. It returns an error (non-zero exit)
// when any group fails.
func runSelfTest() error {
	fmt.Println("Running unit scenarios...")

	c, err := core.New(config.Default(), core.Options{})
	if err != nil {
		return fmt.Errorf("failed to build core: %w", err)
	}
	c.Start()
	defer c.Shutdown()

	failed := 0
	report := func(name string, ok bool) {
		status := "PASSED"
		if !ok {
			status = "FAILED"
			failed++
		}
		fmt.Printf("%s: %s\n", name, status)
	}

	report("Registry lifecycle", testRegistryLifecycle(c))
	report("Authenticator", testAuthenticator(c))
	report("CPU quota checker", testCPUQuotaChecker(c))
	report("Memory admission", testMemoryAdmission(c))

	fmt.Println("All scenarios completed.")
	if failed > 0 {
		return fmt.Errorf("%d scenario group(s) failed", failed)
	}
	return nil
}

func testRegistryLifecycle(c *core.Core) bool {
	spec := types.TenantSpec{
		ID:     "test_tenant",
		Quotas: types.Quotas{CPUPercent: 1, MemoryBytes: testGiB, DiskBytes: 10 * testGiB},
	}
	if err := c.CreateTenant(spec); err != nil {
		return false
	}
	t := c.Registry().Get("test_tenant")
	if t == nil || t.TenantID() != "test_tenant" {
		return false
	}
	if err := c.RemoveTenant("test_tenant"); err != nil {
		return false
	}
	return c.Registry().Get("test_tenant") == nil
}

func testAuthenticator(c *core.Core) bool {
	spec := types.TenantSpec{
		ID:     "auth_test",
		Quotas: types.Quotas{CPUPercent: 1, MemoryBytes: testGiB, DiskBytes: 10 * testGiB},
	}
	if err := c.CreateTenant(spec); err != nil {
		return false
	}
	defer c.RemoveTenant("auth_test")

	if _, err := c.Admit("user@auth_test", "password"); err != nil {
		return false
	}
	_, err := c.Admit("user@nonexistent", "password")
	return errors.Is(err, admission.ErrAuthFailed)
}

func testCPUQuotaChecker(c *core.Core) bool {
	spec := types.TenantSpec{
		ID:     "quota_test",
		Quotas: types.Quotas{CPUPercent: 12, MemoryBytes: testGiB, DiskBytes: 10 * testGiB},
	}
	if err := c.CreateTenant(spec); err != nil {
		return false
	}
	defer c.RemoveTenant("quota_test")

	if !c.CheckCPUQuota("quota_test") {
		return false
	}
	// 60% observed utilization exceeds the 12% quota.
	c.CPU().UpdateUsage("quota_test", 0.6)
	return !c.CheckCPUQuota("quota_test")
}

func testMemoryAdmission(c *core.Core) bool {
	spec := types.TenantSpec{
		ID:     "mem_test",
		Quotas: types.Quotas{CPUPercent: 2, MemoryBytes: testGiB, DiskBytes: 10 * testGiB},
	}
	if err := c.CreateTenant(spec); err != nil {
		return false
	}
	defer c.RemoveTenant("mem_test")

	// Slot quota is 2/100 * 8192 * 0.8 = 131.072 MB by default.
	if !c.CheckMemoryQuota("mem_test", 100) {
		return false
	}
	c.Memory().UpdateUsage("mem_test", 100)
	return !c.CheckMemoryQuota("mem_test", 40)
}
