package cgroup

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/log"
)

// DefaultBasePath is the cgroup-v1 CPU subsystem directory under which
// per-tenant groups are created.
const DefaultBasePath = "/sys/fs/cgroup/cpu/tenantd"

// DefaultCPUShares is the cpu.shares value written for a new tenant
const DefaultCPUShares = 1024

// Controller binds tenant worker threads to per-tenant directories of
// the cgroup-v1 CPU subsystem. A disabled controller (NewDisabled)
// accepts every operation as a successful no-op; callers must never
// assume the controller is effective. A controller from NewController
// performs its file I/O on every platform and does not check whether
// the cgroup filesystem is present; Initialize returns an error when
// the base directory cannot be created.
//
// All state-mutating operations hold a single mutex. File I/O failures
// surface as errors and leave the in-memory thread mirror untouched.
type Controller struct {
	basePath string
	enabled  bool
	logger   zerolog.Logger

	mu      sync.Mutex
	threads map[string][]int
}

// NewController returns an enabled controller rooted at basePath.
// An empty basePath selects DefaultBasePath.
func NewController(basePath string) *Controller {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &Controller{
		basePath: basePath,
		enabled:  true,
		logger:   log.Component("cgroup"),
		threads:  make(map[string][]int),
	}
}

// NewDisabled returns a controller whose every operation is a no-op
// returning success.
func NewDisabled() *Controller {
	return &Controller{
		enabled: false,
		logger:  log.Component("cgroup"),
		threads: make(map[string][]int),
	}
}

// Enabled reports whether the controller performs real filesystem work
func (c *Controller) Enabled() bool { return c.enabled }

// BasePath returns the controller's base directory
func (c *Controller) BasePath() string { return c.basePath }

// Initialize ensures the base directory exists with owner-all and
// group read-exec permissions.
func (c *Controller) Initialize() error {
	if !c.enabled {
		return nil
	}
	if err := os.MkdirAll(c.basePath, 0750); err != nil {
		return fmt.Errorf("failed to create cgroup base %s: %w", c.basePath, err)
	}
	if err := os.Chmod(c.basePath, 0750); err != nil {
		return fmt.Errorf("failed to set cgroup base permissions: %w", err)
	}
	return nil
}

func (c *Controller) tenantDir(tenantID string) string {
	return filepath.Join(c.basePath, tenantID)
}

func validTenantID(tenantID string) error {
	if tenantID == "" || strings.ContainsRune(tenantID, '/') {
		return fmt.Errorf("invalid cgroup tenant id %q", tenantID)
	}
	return nil
}

// CreateTenantCgroup creates the tenant's subdirectory, writes its
// cpu.shares, and registers an empty thread list.
func (c *Controller) CreateTenantCgroup(tenantID string, shares int) error {
	if !c.enabled {
		return nil
	}
	if err := validTenantID(tenantID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dir := c.tenantDir(tenantID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create tenant cgroup %s: %w", tenantID, err)
	}
	if err := writeInt(filepath.Join(dir, "cpu.shares"), shares); err != nil {
		return fmt.Errorf("failed to set cpu.shares for %s: %w", tenantID, err)
	}

	c.threads[tenantID] = nil
	c.logger.Debug().Str("tenant_id", tenantID).Int("shares", shares).Msg("Created tenant cgroup")
	return nil
}

// RemoveTenantCgroup removes the tenant's subdirectory recursively and
// drops its thread list.
func (c *Controller) RemoveTenantCgroup(tenantID string) error {
	if !c.enabled {
		return nil
	}
	if err := validTenantID(tenantID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.tenantDir(tenantID)); err != nil {
		return fmt.Errorf("failed to remove tenant cgroup %s: %w", tenantID, err)
	}
	delete(c.threads, tenantID)
	c.logger.Debug().Str("tenant_id", tenantID).Msg("Removed tenant cgroup")
	return nil
}

// SetCPUShares overwrites the tenant's cpu.shares
func (c *Controller) SetCPUShares(tenantID string, shares int) error {
	if !c.enabled {
		return nil
	}
	if err := validTenantID(tenantID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := writeInt(filepath.Join(c.tenantDir(tenantID), "cpu.shares"), shares); err != nil {
		return fmt.Errorf("failed to set cpu.shares for %s: %w", tenantID, err)
	}
	return nil
}

// AddThread appends the OS thread id to the tenant's tasks file.
// Adding an already-present tid is a no-op returning success.
func (c *Controller) AddThread(tenantID string, tid int) error {
	if !c.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tids, ok := c.threads[tenantID]
	if !ok {
		return fmt.Errorf("no cgroup for tenant %s", tenantID)
	}
	for _, existing := range tids {
		if existing == tid {
			return nil
		}
	}

	if err := appendInt(filepath.Join(c.tenantDir(tenantID), "tasks"), tid); err != nil {
		return fmt.Errorf("failed to add thread %d to cgroup %s: %w", tid, tenantID, err)
	}
	c.threads[tenantID] = append(tids, tid)
	return nil
}

// RemoveThread drops the OS thread id from the in-memory mirror.
// Removing an absent tid is a no-op returning success. The kernel moves
// a thread out of the group when it is written to another cgroup or
// exits; no tasks-file write is needed here.
func (c *Controller) RemoveThread(tenantID string, tid int) error {
	if !c.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tids, ok := c.threads[tenantID]
	if !ok {
		return fmt.Errorf("no cgroup for tenant %s", tenantID)
	}
	for i, existing := range tids {
		if existing == tid {
			c.threads[tenantID] = append(tids[:i], tids[i+1:]...)
			return nil
		}
	}
	return nil
}

// Threads returns the mirrored thread ids registered for the tenant
func (c *Controller) Threads(tenantID string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	tids := c.threads[tenantID]
	out := make([]int, len(tids))
	copy(out, tids)
	return out
}

// CPUUsage returns the tenant's accumulated CPU time in nanoseconds
// from cpuacct.usage.
func (c *Controller) CPUUsage(tenantID string) (uint64, error) {
	if !c.enabled {
		return 0, nil
	}
	if err := validTenantID(tenantID); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(filepath.Join(c.tenantDir(tenantID), "cpuacct.usage"))
	if err != nil {
		return 0, fmt.Errorf("failed to read cpuacct.usage for %s: %w", tenantID, err)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cpuacct.usage for %s: %w", tenantID, err)
	}
	return n, nil
}

// ThrottledTime returns the tenant's throttled time in nanoseconds,
// parsed from the throttled_time line of cpu.stat.
func (c *Controller) ThrottledTime(tenantID string) (uint64, error) {
	if !c.enabled {
		return 0, nil
	}
	if err := validTenantID(tenantID); err != nil {
		return 0, err
	}

	f, err := os.Open(filepath.Join(c.tenantDir(tenantID), "cpu.stat"))
	if err != nil {
		return 0, fmt.Errorf("failed to read cpu.stat for %s: %w", tenantID, err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) == 2 && fields[0] == "throttled_time" {
			n, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("failed to parse throttled_time for %s: %w", tenantID, err)
			}
			return n, nil
		}
	}
	if err := s.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan cpu.stat for %s: %w", tenantID, err)
	}
	return 0, nil
}

// Close removes every tenant cgroup known to the in-memory map
func (c *Controller) Close() error {
	if !c.enabled {
		return nil
	}

	c.mu.Lock()
	ids := make([]string, 0, len(c.threads))
	for id := range c.threads {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := c.RemoveTenantCgroup(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeInt(path string, val int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := strconv.AppendInt(nil, int64(val), 10)
	_, err = f.Write(append(buf, '\n'))
	return err
}

func appendInt(path string, val int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := strconv.AppendInt(nil, int64(val), 10)
	_, err = f.Write(append(buf, '\n'))
	return err
}
