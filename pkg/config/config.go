package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yaobase/tenantd/pkg/types"
)

// Defaults for every recognized key.
const (
	DefaultEnableCgroup         = false
	DefaultTotalThreads         = 120
	DefaultTotalMemoryMB        = 8192
	DefaultTotalDiskGB          = 100
	DefaultMonitoringIntervalMS = 1000
)

// Config holds the server configuration loaded from a key=value file.
// Unknown keys are ignored; malformed values fall back to defaults.
type Config struct {
	EnableCgroup         bool
	TotalThreads         int
	TotalMemoryMB        int
	TotalDiskGB          int
	MonitoringIntervalMS int

	raw map[string]string
}

// Default returns a Config populated with the documented defaults
func Default() *Config {
	return &Config{
		EnableCgroup:         DefaultEnableCgroup,
		TotalThreads:         DefaultTotalThreads,
		TotalMemoryMB:        DefaultTotalMemoryMB,
		TotalDiskGB:          DefaultTotalDiskGB,
		MonitoringIntervalMS: DefaultMonitoringIntervalMS,
		raw:                  make(map[string]string),
	}
}

// Load reads a key=value configuration file. Lines without '=' are
// skipped; surrounding whitespace around keys and values is trimmed.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		cfg.raw[key] = value
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.EnableCgroup = cfg.Bool("enable_cgroup", DefaultEnableCgroup)
	cfg.TotalThreads = cfg.Int("total_threads", DefaultTotalThreads)
	cfg.TotalMemoryMB = cfg.Int("total_memory_mb", DefaultTotalMemoryMB)
	cfg.TotalDiskGB = cfg.Int("total_disk_gb", DefaultTotalDiskGB)
	cfg.MonitoringIntervalMS = cfg.Int("monitoring_interval_ms", DefaultMonitoringIntervalMS)

	return cfg, nil
}

// String returns the raw value for key, or defaultValue if absent
func (c *Config) String(key, defaultValue string) string {
	if v, ok := c.raw[key]; ok {
		return v
	}
	return defaultValue
}

// Int returns the integer value for key. A missing key or a value that
// does not parse as an integer yields defaultValue.
func (c *Config) Int(key string, defaultValue int) int {
	v, ok := c.raw[key]
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// Bool returns the boolean value for key. Accepted spellings are
// "true"/"1" and "false"/"0"; anything else yields defaultValue.
func (c *Config) Bool(key string, defaultValue bool) bool {
	v, ok := c.raw[key]
	if !ok {
		return defaultValue
	}
	switch v {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return defaultValue
}

// LoadManifest reads a YAML tenant manifest declaring tenants to create
// at boot.
func LoadManifest(path string) (*types.TenantManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m types.TenantManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
