package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tenant metrics
	TenantsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantd_tenants_total",
			Help: "Total number of live tenants",
		},
	)

	TenantResourceUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantd_tenant_resource_usage_ratio",
			Help: "Per-tenant resource utilization ratio by resource kind",
		},
		[]string{"tenant_id", "resource"},
	)

	TenantResourceQuota = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantd_tenant_resource_quota",
			Help: "Per-tenant slot quota in the resource's native unit",
		},
		[]string{"tenant_id", "resource"},
	)

	QuotaBreachesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantd_quota_breaches_total",
			Help: "Total quota threshold breaches by resource and severity",
		},
		[]string{"resource", "severity"},
	)

	// Thread pool metrics
	ThreadsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantd_threads_total",
			Help: "Configured global worker budget",
		},
	)

	ThreadsAllocated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantd_threads_allocated",
			Help: "Workers currently allocated to tenant thread groups",
		},
	)

	TenantThreads = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantd_tenant_threads",
			Help: "Per-tenant worker counts by state",
		},
		[]string{"tenant_id", "state"},
	)

	TenantQueueSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantd_tenant_queue_size",
			Help: "Per-tenant advisory task queue length",
		},
		[]string{"tenant_id"},
	)

	TasksExecutedTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantd_tasks_executed_total",
			Help: "Tasks completed per tenant since group creation",
		},
		[]string{"tenant_id"},
	)

	// Admission metrics
	AdmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantd_admissions_total",
			Help: "Admission decisions by outcome",
		},
		[]string{"outcome"},
	)

	SubmitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenantd_submit_duration_seconds",
			Help:    "Time taken to submit a task to a tenant queue in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Tenant operation metrics
	TenantCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenantd_tenant_create_duration_seconds",
			Help:    "Time taken to create a tenant in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TenantRemoveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenantd_tenant_remove_duration_seconds",
			Help:    "Time taken to remove a tenant in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(TenantsTotal)
	prometheus.MustRegister(TenantResourceUsage)
	prometheus.MustRegister(TenantResourceQuota)
	prometheus.MustRegister(QuotaBreachesTotal)
	prometheus.MustRegister(ThreadsTotal)
	prometheus.MustRegister(ThreadsAllocated)
	prometheus.MustRegister(TenantThreads)
	prometheus.MustRegister(TenantQueueSize)
	prometheus.MustRegister(TasksExecutedTotal)
	prometheus.MustRegister(AdmissionsTotal)
	prometheus.MustRegister(SubmitDuration)
	prometheus.MustRegister(TenantCreateDuration)
	prometheus.MustRegister(TenantRemoveDuration)
}

// Handler returns the HTTP handler serving the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures operation durations for histogram observation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time in the given histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time with label values
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
