package tenant

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yaobase/tenantd/pkg/types"
)

var (
	// ErrTenantExists is returned when creating a duplicate tenant
	ErrTenantExists = errors.New("tenant already exists")

	// ErrTenantUnknown is returned for operations on an absent tenant
	ErrTenantUnknown = errors.New("tenant not found")

	// ErrInvalidTenant is returned for an empty tenant id or a negative
	// quota value.
	ErrInvalidTenant = errors.New("invalid tenant specification")
)

// Tenant is the shared handle of one isolation unit. The id is
// immutable; quota fields are atomic so that admission, accounting, and
// thread groups can read them without taking the registry lock. Quotas
// never go negative.
//
// Handles are created and destroyed only through the Registry; the last
// reference released after Remove unlinks the handle frees it.
type Tenant struct {
	id        string
	createdAt time.Time

	cpuQuota  atomic.Int64 // percent of host CPU, 0-100
	memQuota  atomic.Int64 // bytes
	diskQuota atomic.Int64 // bytes
}

func newTenant(id string, q types.Quotas) (*Tenant, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty tenant id", ErrInvalidTenant)
	}
	if q.CPUPercent < 0 || q.MemoryBytes < 0 || q.DiskBytes < 0 {
		return nil, fmt.Errorf("%w: negative quota", ErrInvalidTenant)
	}

	t := &Tenant{id: id, createdAt: time.Now()}
	t.cpuQuota.Store(int64(q.CPUPercent))
	t.memQuota.Store(q.MemoryBytes)
	t.diskQuota.Store(q.DiskBytes)
	return t, nil
}

// TenantID returns the tenant's immutable identifier
func (t *Tenant) TenantID() string { return t.id }

// CPUQuotaPercent returns the CPU quota as a percentage of the host
func (t *Tenant) CPUQuotaPercent() int { return int(t.cpuQuota.Load()) }

// MemoryQuotaBytes returns the memory quota in bytes
func (t *Tenant) MemoryQuotaBytes() int64 { return t.memQuota.Load() }

// DiskQuotaBytes returns the disk quota in bytes
func (t *Tenant) DiskQuotaBytes() int64 { return t.diskQuota.Load() }

// setQuotas overwrites all quota fields; negative values are rejected
func (t *Tenant) setQuotas(q types.Quotas) error {
	if q.CPUPercent < 0 || q.MemoryBytes < 0 || q.DiskBytes < 0 {
		return fmt.Errorf("%w: negative quota", ErrInvalidTenant)
	}
	t.cpuQuota.Store(int64(q.CPUPercent))
	t.memQuota.Store(q.MemoryBytes)
	t.diskQuota.Store(q.DiskBytes)
	return nil
}

// Quotas returns a snapshot of the tenant's quota contract
func (t *Tenant) Quotas() types.Quotas {
	return types.Quotas{
		CPUPercent:  t.CPUQuotaPercent(),
		MemoryBytes: t.MemoryQuotaBytes(),
		DiskBytes:   t.DiskQuotaBytes(),
	}
}

// Info returns the tenant's externally visible snapshot
func (t *Tenant) Info() types.TenantInfo {
	return types.TenantInfo{
		ID:        t.id,
		Quotas:    t.Quotas(),
		CreatedAt: t.createdAt,
	}
}
