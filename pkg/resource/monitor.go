package resource

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/cgroup"
	"github.com/yaobase/tenantd/pkg/log"
)

// DefaultMonitorInterval is the CPU monitor sampling period
const DefaultMonitorInterval = time.Second

// Sampler produces the observed CPU utilization share for one tenant.
// The second return is false when no sample is available this period.
type Sampler interface {
	Sample(tenantID string) (float64, bool)
}

// NopSampler never produces samples. It stands in where no utilization
// source is available; accounted usage then only changes through
// explicit UpdateUsage calls.
type NopSampler struct{}

// Sample reports no sample available
func (NopSampler) Sample(string) (float64, bool) { return 0, false }

// CgroupSampler derives per-tenant utilization from cpuacct.usage
// deltas between consecutive samples.
type CgroupSampler struct {
	ctrl *cgroup.Controller

	mu   sync.Mutex
	prev map[string]cgroupSample
}

type cgroupSample struct {
	usage uint64
	at    time.Time
}

// NewCgroupSampler returns a sampler backed by the given controller
func NewCgroupSampler(ctrl *cgroup.Controller) *CgroupSampler {
	return &CgroupSampler{
		ctrl: ctrl,
		prev: make(map[string]cgroupSample),
	}
}

// Sample returns the tenant's CPU share of the whole host since the
// previous sample. The first observation primes the baseline and
// produces no sample.
func (s *CgroupSampler) Sample(tenantID string) (float64, bool) {
	usage, err := s.ctrl.CPUUsage(tenantID)
	if err != nil {
		return 0, false
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.prev[tenantID]
	s.prev[tenantID] = cgroupSample{usage: usage, at: now}
	if !ok || usage < last.usage {
		return 0, false
	}

	wall := now.Sub(last.at)
	if wall <= 0 {
		return 0, false
	}
	share := float64(usage-last.usage) / float64(wall.Nanoseconds()) / float64(runtime.NumCPU())
	if share > 1 {
		share = 1
	}
	return share, true
}

// Forget drops the tenant's sampling baseline
func (s *CgroupSampler) Forget(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prev, tenantID)
}

// Monitor is the CPU monitoring daemon. Every interval it samples each
// registered tenant's utilization and writes it into CPU accounting.
type Monitor struct {
	cpu      *CPUManager
	sampler  Sampler
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	tenants map[string]struct{}
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor returns a stopped monitor. A zero interval selects
// DefaultMonitorInterval; a nil sampler selects NopSampler.
func NewMonitor(cpu *CPUManager, sampler Sampler, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	if sampler == nil {
		sampler = NopSampler{}
	}
	return &Monitor{
		cpu:      cpu,
		sampler:  sampler,
		interval: interval,
		logger:   log.Component("cpu-monitor"),
		tenants:  make(map[string]struct{}),
	}
}

// Start launches the monitor loop; a second call is a no-op
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(m.stopCh, m.doneCh)
	m.logger.Info().Dur("interval", m.interval).Msg("CPU monitor started")
}

// Stop terminates the monitor loop and waits for it to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
	m.logger.Info().Msg("CPU monitor stopped")
}

// Register adds a tenant to the sampling set
func (m *Monitor) Register(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[tenantID] = struct{}{}
}

// Unregister removes a tenant from the sampling set
func (m *Monitor) Unregister(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tenants, tenantID)
}

// Registered reports whether the tenant is in the sampling set
func (m *Monitor) Registered(tenantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tenants[tenantID]
	return ok
}

func (m *Monitor) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sampleAll()
		case <-stopCh:
			return
		}
	}
}

func (m *Monitor) sampleAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.tenants))
	for id := range m.tenants {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if share, ok := m.sampler.Sample(id); ok {
			m.cpu.UpdateUsage(id, share)
		}
	}
}
