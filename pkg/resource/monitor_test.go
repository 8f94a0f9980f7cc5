package resource

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSampler struct {
	mu     sync.Mutex
	shares map[string]float64
}

func (s *scriptedSampler) Sample(tenantID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	share, ok := s.shares[tenantID]
	return share, ok
}

func TestMonitorFeedsAccounting(t *testing.T) {
	cpu := NewCPUManager()
	require.NoError(t, cpu.Allocate(fakeOwner{id: "t"}))

	sampler := &scriptedSampler{shares: map[string]float64{"t": 0.42}}
	m := NewMonitor(cpu, sampler, 10*time.Millisecond)
	m.Register("t")
	m.Start()
	defer m.Stop()

	assert.Eventually(t, func() bool {
		usage, ok := cpu.Usage("t")
		return ok && usage == 0.42
	}, time.Second, 5*time.Millisecond)
}

func TestMonitorRegisterUnregister(t *testing.T) {
	cpu := NewCPUManager()
	m := NewMonitor(cpu, nil, time.Hour)

	m.Register("a")
	assert.True(t, m.Registered("a"))
	m.Unregister("a")
	assert.False(t, m.Registered("a"))
}

func TestMonitorStartStopIdempotent(t *testing.T) {
	cpu := NewCPUManager()
	m := NewMonitor(cpu, nil, 10*time.Millisecond)

	m.Start()
	m.Start()
	m.Stop()
	require.NotPanics(t, m.Stop)

	// A stopped monitor can be restarted.
	m.Start()
	m.Stop()
}

func TestNopSampler(t *testing.T) {
	_, ok := NopSampler{}.Sample("any")
	assert.False(t, ok)
}
