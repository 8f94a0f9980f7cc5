package types

import (
	"time"
)

// ResourceKind identifies one accounted resource dimension
type ResourceKind string

const (
	ResourceCPU    ResourceKind = "cpu"
	ResourceMemory ResourceKind = "memory"
	ResourceDisk   ResourceKind = "disk"
)

// WorkerState represents the lifecycle state of a worker thread
type WorkerState int32

const (
	WorkerCreated WorkerState = iota
	WorkerRunning
	WorkerStopping
	WorkerStopped
)

// String returns the human-readable worker state
func (s WorkerState) String() string {
	switch s {
	case WorkerCreated:
		return "created"
	case WorkerRunning:
		return "running"
	case WorkerStopping:
		return "stopping"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Quotas is the quota contract of one tenant.
// CPUPercent is a share of the host CPU in [0, 100]; memory and disk
// quotas are in bytes.
type Quotas struct {
	CPUPercent  int   `yaml:"cpu_percent" json:"cpu_percent"`
	MemoryBytes int64 `yaml:"memory_bytes" json:"memory_bytes"`
	DiskBytes   int64 `yaml:"disk_bytes" json:"disk_bytes"`
}

// TenantSpec is the declarative description of a tenant, as accepted by
// the API layer and the boot manifest.
type TenantSpec struct {
	ID     string `yaml:"id" json:"id"`
	Quotas Quotas `yaml:"quotas" json:"quotas"`
}

// TenantInfo is the externally visible snapshot of a live tenant
type TenantInfo struct {
	ID        string    `json:"id"`
	Quotas    Quotas    `json:"quotas"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadGroupInfo reports the state of one tenant's worker set
type ThreadGroupInfo struct {
	TotalThreads int `json:"total_threads"`
	BusyThreads  int `json:"busy_threads"`
	QueueSize    int `json:"queue_size"`
}

// SystemThreadInfo reports the partitioning of the global worker budget
type SystemThreadInfo struct {
	TotalThreads     int `json:"total_threads"`
	AllocatedThreads int `json:"allocated_threads"`
	SystemThreads    int `json:"system_threads"`
}

// ResourceSlot is the accounting record a tenant holds in one resource
// dimension. Values are in the resource's native unit (MB for memory,
// GB for disk).
type ResourceSlot struct {
	Allocated float64 `json:"allocated"`
	Used      float64 `json:"used"`
	Quota     float64 `json:"quota"`
	Peak      float64 `json:"peak"`
}

// TenantManifest declares tenants to create at boot
type TenantManifest struct {
	Tenants []TenantSpec `yaml:"tenants"`
}
