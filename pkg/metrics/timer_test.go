package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// histSnapshot reads the current sample count and sum of a histogram
func histSnapshot(t *testing.T, h prometheus.Histogram) (uint64, float64) {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

// A timer wrapped around a tenant creation must land one observation in
// TenantCreateDuration covering at least the time the operation took.
func TestTimerObservesTenantCreateDuration(t *testing.T) {
	countBefore, sumBefore := histSnapshot(t, TenantCreateDuration)

	elapsed := 20 * time.Millisecond
	timer := NewTimer()
	time.Sleep(elapsed)
	require.GreaterOrEqual(t, timer.Duration(), elapsed)
	timer.ObserveDuration(TenantCreateDuration)

	countAfter, sumAfter := histSnapshot(t, TenantCreateDuration)
	assert.Equal(t, countBefore+1, countAfter)
	assert.GreaterOrEqual(t, sumAfter-sumBefore, elapsed.Seconds())
}

// Every submission is timed individually: two timed submits add two
// samples to SubmitDuration.
func TestTimerTracksSubmitLatency(t *testing.T) {
	countBefore, _ := histSnapshot(t, SubmitDuration)

	for i := 0; i < 2; i++ {
		timer := NewTimer()
		timer.ObserveDuration(SubmitDuration)
	}

	countAfter, _ := histSnapshot(t, SubmitDuration)
	assert.Equal(t, countBefore+2, countAfter)
}

// ObserveDurationVec fans observations out per tenant label
func TestTimerObserveDurationVecPerTenant(t *testing.T) {
	perTenant := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenantd_test_task_duration_seconds",
		Help:    "Per-tenant task duration for timer tests",
		Buckets: prometheus.DefBuckets,
	}, []string{"tenant_id"})

	NewTimer().ObserveDurationVec(perTenant, "tenant1")
	NewTimer().ObserveDurationVec(perTenant, "tenant2")
	NewTimer().ObserveDurationVec(perTenant, "tenant2")

	for tenantID, want := range map[string]uint64{"tenant1": 1, "tenant2": 2} {
		h, err := perTenant.GetMetricWithLabelValues(tenantID)
		require.NoError(t, err)

		var m dto.Metric
		require.NoError(t, h.(prometheus.Histogram).Write(&m))
		assert.Equal(t, want, m.GetHistogram().GetSampleCount(), "tenant %s", tenantID)
	}
}
