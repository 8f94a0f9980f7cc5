package core

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/admission"
	"github.com/yaobase/tenantd/pkg/cgroup"
	"github.com/yaobase/tenantd/pkg/config"
	"github.com/yaobase/tenantd/pkg/events"
	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/metrics"
	"github.com/yaobase/tenantd/pkg/pool"
	"github.com/yaobase/tenantd/pkg/queue"
	"github.com/yaobase/tenantd/pkg/resource"
	"github.com/yaobase/tenantd/pkg/tenant"
	"github.com/yaobase/tenantd/pkg/types"
)

// Options tune pieces of the core that are not part of the
// configuration file surface.
type Options struct {
	// CgroupBasePath overrides the cgroup controller base directory
	CgroupBasePath string

	// MetricsInterval is the gauge refresh period (0 selects the default)
	MetricsInterval time.Duration
}

// Core composes the tenant registry, the three resource accounting
// managers and their checkers, the CPU monitor, the thread pool
// manager, the cgroup controller, and the event broker into one value.
// Passing the Core by reference preserves the single-instance property
// of each subsystem without process-wide globals.
type Core struct {
	cfg    *config.Config
	logger zerolog.Logger

	cpu     *resource.CPUManager
	memory  *resource.MemoryManager
	disk    *resource.DiskManager
	memChk  *resource.SlotChecker
	diskChk *resource.SlotChecker
	cpuChk  *resource.CPUChecker
	monitor *resource.Monitor

	cgroupCtrl *cgroup.Controller
	pool       *pool.Manager
	registry   *tenant.Registry
	auth       *admission.Authenticator
	gate       *admission.Gate
	broker     *events.Broker
	collector  *metrics.Collector
}

// New wires a Core from configuration. The thread pool is initialized
// here; Start launches the daemons.
func New(cfg *config.Config, opts Options) (*Core, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	c := &Core{
		cfg:    cfg,
		logger: log.Component("core"),
		cpu:    resource.NewCPUManager(),
		memory: resource.NewMemoryManager(),
		disk:   resource.NewDiskManager(),
		broker: events.NewBroker(),
	}

	c.memory.Initialize(float64(cfg.TotalMemoryMB))
	c.disk.Initialize(float64(cfg.TotalDiskGB))

	if cfg.EnableCgroup {
		c.cgroupCtrl = cgroup.NewController(opts.CgroupBasePath)
	} else {
		c.cgroupCtrl = cgroup.NewDisabled()
	}

	c.pool = pool.NewManager()
	if err := c.pool.Initialize(cfg.TotalThreads, c.cgroupCtrl); err != nil {
		return nil, fmt.Errorf("failed to initialize thread pool: %w", err)
	}

	var sampler resource.Sampler
	if c.cgroupCtrl.Enabled() {
		sampler = resource.NewCgroupSampler(c.cgroupCtrl)
	}
	interval := time.Duration(cfg.MonitoringIntervalMS) * time.Millisecond
	c.monitor = resource.NewMonitor(c.cpu, sampler, interval)

	c.registry = tenant.NewRegistry(tenant.Deps{
		CPU:     c.cpu,
		Memory:  c.memory,
		Disk:    c.disk,
		Monitor: c.monitor,
		Pool:    c.pool,
		Broker:  c.broker,
	})

	c.memChk = resource.NewMemoryChecker(c.memory)
	c.diskChk = resource.NewDiskChecker(c.disk)
	c.cpuChk = resource.NewCPUChecker(c.cpu, c.registry)
	c.wireBreachEvents()

	c.auth = admission.NewAuthenticator(c.registry)
	c.gate = admission.NewGate(c.auth, c.registry, c.cpuChk)

	c.collector = metrics.NewCollector(metrics.Sources{
		Registry: c.registry,
		Pool:     c.pool,
		CPU:      c.cpu,
		Memory:   c.memory,
		Disk:     c.disk,
	}, opts.MetricsInterval)

	return c, nil
}

func (c *Core) wireBreachEvents() {
	breach := func(res types.ResourceKind, severity string, eventType events.EventType) resource.BreachFunc {
		return func(tenantID string, usage, quota float64) {
			metrics.QuotaBreachesTotal.WithLabelValues(string(res), severity).Inc()
			c.broker.Publish(&events.Event{
				Type:     eventType,
				TenantID: tenantID,
				Message:  fmt.Sprintf("%s usage %.1f%% of quota %.2f", res, usage*100, quota),
			})
		}
	}
	c.memChk.OnSoftBreach(breach(types.ResourceMemory, "soft", events.EventQuotaSoftBreach))
	c.memChk.OnHardBreach(breach(types.ResourceMemory, "hard", events.EventQuotaHardBreach))
	c.diskChk.OnSoftBreach(breach(types.ResourceDisk, "soft", events.EventQuotaSoftBreach))
	c.diskChk.OnHardBreach(breach(types.ResourceDisk, "hard", events.EventQuotaHardBreach))
}

// Start launches the event broker, the CPU monitor, and the metrics
// collector.
func (c *Core) Start() {
	c.broker.Start()
	c.monitor.Start()
	c.collector.Start()
	c.logger.Info().
		Int("total_threads", c.cfg.TotalThreads).
		Bool("cgroup", c.cgroupCtrl.Enabled()).
		Msg("Core started")
}

// Shutdown stops the daemons, removes every tenant, and shuts the
// thread pool down. In-flight tasks run to completion.
func (c *Core) Shutdown() {
	for _, info := range c.registry.List() {
		if err := c.registry.Remove(info.ID); err != nil {
			c.logger.Warn().Err(err).Str("tenant_id", info.ID).Msg("Failed to remove tenant at shutdown")
		}
	}
	c.collector.Stop()
	c.monitor.Stop()
	c.pool.Shutdown()
	c.broker.Stop()
	c.logger.Info().Msg("Core shut down")
}

// CreateTenant registers a tenant with the given quota contract
func (c *Core) CreateTenant(spec types.TenantSpec) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TenantCreateDuration)
	return c.registry.Create(spec.ID, spec.Quotas)
}

// RemoveTenant tears a tenant down
func (c *Core) RemoveTenant(id string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TenantRemoveDuration)
	return c.registry.Remove(id)
}

// UpdateTenantQuota replaces a tenant's quota contract
func (c *Core) UpdateTenantQuota(id string, q types.Quotas) error {
	return c.registry.UpdateQuota(id, q)
}

// Submit forwards a work unit to the tenant's thread group
func (c *Core) Submit(tenantID string, task queue.Task) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SubmitDuration)
	return c.pool.Submit(tenantID, task)
}

// Admit runs the admission gate and returns a request context
func (c *Core) Admit(userAtTenant, credential string) (*admission.RequestContext, error) {
	ctx, err := c.gate.Admit(userAtTenant, credential)
	if err != nil {
		metrics.AdmissionsTotal.WithLabelValues("denied").Inc()
		return nil, err
	}
	metrics.AdmissionsTotal.WithLabelValues("admitted").Inc()
	return ctx, nil
}

// CheckMemoryQuota reports whether the tenant may consume requestedMB
// more megabytes of memory.
func (c *Core) CheckMemoryQuota(tenantID string, requestedMB float64) bool {
	return c.memChk.CheckQuota(tenantID, requestedMB)
}

// CheckDiskQuota reports whether the tenant may consume requestedGB
// more gigabytes of disk.
func (c *Core) CheckDiskQuota(tenantID string, requestedGB float64) bool {
	return c.diskChk.CheckQuota(tenantID, requestedGB)
}

// CheckCPUQuota reports whether the tenant's observed CPU utilization
// is below its quota.
func (c *Core) CheckCPUQuota(tenantID string) bool {
	return c.cpuChk.CheckQuota(tenantID)
}

// Registry exposes the tenant registry
func (c *Core) Registry() *tenant.Registry { return c.registry }

// Pool exposes the thread pool manager
func (c *Core) Pool() *pool.Manager { return c.pool }

// Broker exposes the event broker
func (c *Core) Broker() *events.Broker { return c.broker }

// Cgroup exposes the cgroup controller
func (c *Core) Cgroup() *cgroup.Controller { return c.cgroupCtrl }

// CPU exposes CPU accounting
func (c *Core) CPU() *resource.CPUManager { return c.cpu }

// Memory exposes memory accounting
func (c *Core) Memory() *resource.MemoryManager { return c.memory }

// Disk exposes disk accounting
func (c *Core) Disk() *resource.DiskManager { return c.disk }

// Monitor exposes the CPU monitor
func (c *Core) Monitor() *resource.Monitor { return c.monitor }

// Config returns the configuration the core was built from
func (c *Core) Config() *config.Config { return c.cfg }
