package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yaobase/tenantd/pkg/core"
	"github.com/yaobase/tenantd/pkg/queue"
	"github.com/yaobase/tenantd/pkg/types"
)

const (
	benchRequests   = 1000
	benchSubmitters = 10
)

// runBenchmark drives a fixed synthetic load through the admission gate
// and one tenant's thread group and reports throughput.
func runBenchmark() error {
	fmt.Println("Running benchmark...")

	cfg := loadConfig("config.ini")
	c, err := core.New(cfg, core.Options{})
	if err != nil {
		return fmt.Errorf("failed to build core: %w", err)
	}
	c.Start()
	defer c.Shutdown()

	tenants := []types.TenantSpec{
		{ID: "bench_tenant1", Quotas: types.Quotas{CPUPercent: 2, MemoryBytes: 4 << 30, DiskBytes: 50 << 30}},
		{ID: "bench_tenant2", Quotas: types.Quotas{CPUPercent: 1, MemoryBytes: 2 << 30, DiskBytes: 25 << 30}},
	}
	for _, spec := range tenants {
		if err := c.CreateTenant(spec); err != nil {
			return fmt.Errorf("failed to create %s: %w", spec.ID, err)
		}
	}

	var executed atomic.Int64
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < benchSubmitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < benchRequests/benchSubmitters; j++ {
				ctx, err := c.Admit("bench@bench_tenant1", "")
				if err != nil {
					continue
				}
				stats := ctx.Stats
				_ = c.Submit("bench_tenant1", queue.Func(func() {
					stats.AddCPU(0.0001)
					executed.Add(1)
				}))
			}
		}()
	}
	wg.Wait()

	// Wait for the workers to drain the queue.
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if info, ok := c.Pool().TenantThreadInfo("bench_tenant1"); ok && info.QueueSize == 0 && info.BusyThreads == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	elapsed := time.Since(start)
	fmt.Printf("Benchmark completed in %d ms\n", elapsed.Milliseconds())
	fmt.Printf("Executed tasks: %d\n", executed.Load())
	fmt.Printf("Requests per second: %.1f\n", float64(benchRequests)/elapsed.Seconds())

	sys := c.Pool().SystemThreadInfo()
	fmt.Printf("System threads: %d\n", sys.TotalThreads)
	fmt.Printf("Allocated threads: %d\n", sys.AllocatedThreads)

	return nil
}
