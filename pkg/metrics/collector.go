package metrics

import (
	"sync"
	"time"

	"github.com/yaobase/tenantd/pkg/pool"
	"github.com/yaobase/tenantd/pkg/resource"
	"github.com/yaobase/tenantd/pkg/tenant"
	"github.com/yaobase/tenantd/pkg/types"
)

// Sources are the core components the collector mirrors into gauges
type Sources struct {
	Registry *tenant.Registry
	Pool     *pool.Manager
	CPU      *resource.CPUManager
	Memory   *resource.MemoryManager
	Disk     *resource.DiskManager
}

// Collector periodically mirrors core state into prometheus gauges
type Collector struct {
	sources  Sources
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a collector over the given sources. A zero
// interval selects 15 seconds.
func NewCollector(sources Sources, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		sources:  sources,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector; idempotent
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Collector) collect() {
	c.collectTenantMetrics()
	c.collectThreadMetrics()
	c.collectResourceMetrics()
}

func (c *Collector) collectTenantMetrics() {
	TenantsTotal.Set(float64(c.sources.Registry.Count()))
}

func (c *Collector) collectThreadMetrics() {
	sys := c.sources.Pool.SystemThreadInfo()
	ThreadsTotal.Set(float64(sys.TotalThreads))
	ThreadsAllocated.Set(float64(sys.AllocatedThreads))

	for _, info := range c.sources.Registry.List() {
		group, ok := c.sources.Pool.TenantThreadInfo(info.ID)
		if !ok {
			continue
		}
		TenantThreads.WithLabelValues(info.ID, "total").Set(float64(group.TotalThreads))
		TenantThreads.WithLabelValues(info.ID, "busy").Set(float64(group.BusyThreads))
		TenantQueueSize.WithLabelValues(info.ID).Set(float64(group.QueueSize))

		if executed, ok := c.sources.Pool.ExecutedTasks(info.ID); ok {
			TasksExecutedTotal.WithLabelValues(info.ID).Set(float64(executed))
		}
	}
}

func (c *Collector) collectResourceMetrics() {
	for id, usage := range c.sources.CPU.Usages() {
		TenantResourceUsage.WithLabelValues(id, string(types.ResourceCPU)).Set(usage)
	}
	for _, id := range c.sources.Memory.TenantIDs() {
		if usage, ok := c.sources.Memory.Usage(id); ok {
			TenantResourceUsage.WithLabelValues(id, string(types.ResourceMemory)).Set(usage)
		}
		if slot, ok := c.sources.Memory.Slot(id); ok {
			TenantResourceQuota.WithLabelValues(id, string(types.ResourceMemory)).Set(slot.Quota)
		}
	}
	for _, id := range c.sources.Disk.TenantIDs() {
		if usage, ok := c.sources.Disk.Usage(id); ok {
			TenantResourceUsage.WithLabelValues(id, string(types.ResourceDisk)).Set(usage)
		}
		if slot, ok := c.sources.Disk.Slot(id); ok {
			TenantResourceQuota.WithLabelValues(id, string(types.ResourceDisk)).Set(slot.Quota)
		}
	}
}
