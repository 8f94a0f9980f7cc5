package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	// Respect container CPU and memory limits for a process whose whole
	// job is partitioning host capacity.
	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"

	"github.com/yaobase/tenantd/pkg/api"
	"github.com/yaobase/tenantd/pkg/catalog"
	"github.com/yaobase/tenantd/pkg/config"
	"github.com/yaobase/tenantd/pkg/core"
	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tenantd",
	Short: "tenantd - multi-tenant resource isolation daemon",
	Long: `tenantd partitions a bounded worker budget, memory, and disk among
named tenants, gates every request behind quota admission, and
optionally binds tenant workers to Linux cgroups for kernel-enforced
CPU shares.

Run without flags to start the demo server; --test runs the in-process
unit scenarios and --benchmark runs a fixed synthetic load.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		runTests, _ := cmd.Flags().GetBool("test")
		runBench, _ := cmd.Flags().GetBool("benchmark")

		switch {
		case runTests:
			return runSelfTest()
		case runBench:
			return runBenchmark()
		default:
			return runServer(cmd)
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"tenantd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.Flags().Bool("test", false, "Run in-process unit scenarios and exit")
	rootCmd.Flags().Bool("benchmark", false, "Run the synthetic benchmark load and exit")
	rootCmd.Flags().String("config", "config.ini", "Path to the key=value configuration file")
	rootCmd.Flags().String("manifest", "", "Optional YAML manifest of tenants to create at boot")
	rootCmd.Flags().String("data-dir", "", "Directory for the tenant catalog (empty disables persistence)")
	rootCmd.Flags().String("api-addr", ":8080", "Admin API listen address")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Setup(logLevel, logJSON)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Logger.Warn().Err(err).Str("path", path).Msg("Failed to load config, using defaults")
		return config.Default()
	}
	return cfg
}

func runServer(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	manifestPath, _ := cmd.Flags().GetString("manifest")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	apiAddr, _ := cmd.Flags().GetString("api-addr")

	cfg := loadConfig(configPath)

	c, err := core.New(cfg, core.Options{})
	if err != nil {
		return fmt.Errorf("failed to build core: %w", err)
	}
	c.Start()
	defer c.Shutdown()

	var cat *catalog.Catalog
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0750); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		cat, err = catalog.Open(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open tenant catalog: %w", err)
		}
		defer cat.Close()

		replayCatalog(c, cat)
	}

	if manifestPath != "" {
		if err := applyManifest(c, cat, manifestPath); err != nil {
			return err
		}
	}

	if c.Registry().Count() == 0 {
		for _, spec := range demoTenants() {
			if err := c.CreateTenant(spec); err != nil {
				log.Logger.Warn().Err(err).Str("tenant_id", spec.ID).Msg("Failed to create demo tenant")
			}
		}
	}

	srv := api.NewServer(c, cat)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(apiAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("admin API failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

// replayCatalog re-creates the tenants recorded by a previous run
func replayCatalog(c *core.Core, cat *catalog.Catalog) {
	specs, err := cat.ListTenants()
	if err != nil {
		log.Logger.Error().Err(err).Msg("Failed to read tenant catalog")
		return
	}
	for _, spec := range specs {
		if err := c.CreateTenant(spec); err != nil {
			log.Logger.Error().Err(err).Str("tenant_id", spec.ID).Msg("Failed to replay tenant from catalog")
		}
	}
	if len(specs) > 0 {
		log.Logger.Info().Int("tenants", len(specs)).Msg("Replayed tenant catalog")
	}
}

// applyManifest creates the tenants declared in a YAML manifest
func applyManifest(c *core.Core, cat *catalog.Catalog, path string) error {
	manifest, err := config.LoadManifest(path)
	if err != nil {
		return err
	}
	for _, spec := range manifest.Tenants {
		if err := c.CreateTenant(spec); err != nil {
			return fmt.Errorf("failed to create tenant %s from manifest: %w", spec.ID, err)
		}
		if cat != nil {
			if err := cat.SaveTenant(spec); err != nil {
				log.Logger.Error().Err(err).Str("tenant_id", spec.ID).Msg("Failed to persist manifest tenant")
			}
		}
	}
	return nil
}

// demoTenants mirrors the two sample tenants of the original demo
func demoTenants() []types.TenantSpec {
	return []types.TenantSpec{
		{ID: "tenant1", Quotas: types.Quotas{CPUPercent: 2, MemoryBytes: 8 << 30, DiskBytes: 128 << 30}},
		{ID: "tenant2", Quotas: types.Quotas{CPUPercent: 1, MemoryBytes: 4 << 30, DiskBytes: 64 << 30}},
	}
}
