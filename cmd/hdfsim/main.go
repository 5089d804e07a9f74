package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cuemby/hdfsim/pkg/cluster"
	"github.com/cuemby/hdfsim/pkg/config"
	"github.com/cuemby/hdfsim/pkg/log"
	"github.com/cuemby/hdfsim/pkg/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hdfsim",
	Short: "hdfsim - discrete-event HDFS limp-mode slowdown simulator",
	Long: `hdfsim simulates an HDFS-like cluster's replicated-write pipeline,
heartbeat and block-report traffic, and disk/NIC contention in virtual
time, so "what happens to write latency when every disk is throttled
to 2 MiB/s" can be answered without touching a real cluster.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics at this address while running (empty disables)")
	rootCmd.PersistentFlags().Int64("seed", 0, "Override the scenario's random seed (unset keeps the config's own seed)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(putFilesCmd)
	rootCmd.AddCommand(regenerateBlocksCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(configCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// loadConfig resolves the --config flag (if set) or falls back to
// config.Default(), matching the reference's create_hdfs(**kwargs)
// defaulting behavior, then applies any explicit --seed override.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.FromYAML(path)
		if err != nil {
			return config.Config{}, err
		}
	}
	return applySeedOverride(cmd, cfg), nil
}

// applySeedOverride overrides cfg.Seed with --seed when the caller
// explicitly set it, leaving whatever loadConfig/FromPreset already
// decided untouched otherwise — spec.md §5's determinism requirement
// depends on the seed actually reaching NewCluster's shared *rand.Rand
// rather than a hidden, auto-seeded global source.
func applySeedOverride(cmd *cobra.Command, cfg config.Config) config.Config {
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		cfg.Seed = seed
	}
	return cfg
}

// startMetricsServer serves /metrics at addr (if non-empty) and
// polls cluster's point-in-time gauges every tick until stop fires,
// mirroring warren's background metrics-HTTP-server pattern adapted
// for a simulator whose own clock is virtual rather than wall-clock.
func startMetricsServer(addr string, c *cluster.Cluster, stop <-chan struct{}) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.ExportMetrics()
			}
		}
	}()
	fmt.Printf("metrics endpoint: http://%s/metrics\n", addr)
}

var putFilesCmd = &cobra.Command{
	Use:   "put-files",
	Short: "Write count files of size bytes each through the replicated pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		count, _ := cmd.Flags().GetInt("count")
		size, _ := cmd.Flags().GetFloat64("size")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		c := cluster.NewCluster(cfg, log.WithComponent("cluster"))
		stop := make(chan struct{})
		startMetricsServer(metricsAddr, c, stop)

		finish, err := c.PutFiles(count, size)
		close(stop)
		if err != nil {
			return fmt.Errorf("put-files: %w", err)
		}
		fmt.Printf("put_files(%d, %.0f bytes) finished at virtual time %.4fs\n", count, size, finish)
		return nil
	},
}

func init() {
	putFilesCmd.Flags().String("config", "", "Scenario YAML config (defaults to config.Default())")
	putFilesCmd.Flags().Int("count", 1, "Number of files to write")
	putFilesCmd.Flags().Float64("size", 100*1024*1024, "Size of each file, in bytes")
}

var regenerateBlocksCmd = &cobra.Command{
	Use:   "regenerate-blocks",
	Short: "Replicate count synthetic blocks between random datanode pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		count, _ := cmd.Flags().GetInt("count")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		c := cluster.NewCluster(cfg, log.WithComponent("cluster"))
		stop := make(chan struct{})
		startMetricsServer(metricsAddr, c, stop)

		finish, err := c.RegenerateBlocks(count)
		close(stop)
		if err != nil {
			return fmt.Errorf("regenerate-blocks: %w", err)
		}
		fmt.Printf("regenerate_blocks(%d) finished at virtual time %.4fs\n", count, finish)
		return nil
	},
}

func init() {
	regenerateBlocksCmd.Flags().String("config", "", "Scenario YAML config (defaults to config.Default())")
	regenerateBlocksCmd.Flags().Int("count", 30, "Number of blocks to regenerate")
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario NAME",
	Short: "Run one of spec.md §8's named end-to-end scenarios",
	Long: `Runs a named preset scenario and reports its virtual finish time.
Valid names: default-write, large-cluster, throttled-disks,
regenerate-throttled, heartbeat-overhead, single-node-break-repair.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := config.Preset(args[0])
		cfg, err := config.FromPreset(name)
		if err != nil {
			return err
		}
		cfg = applySeedOverride(cmd, cfg)

		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		c := cluster.NewCluster(cfg, log.WithComponent("cluster"))
		stop := make(chan struct{})
		startMetricsServer(metricsAddr, c, stop)
		defer close(stop)

		finish, err := runScenario(c, name)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
		fmt.Printf("scenario %s finished at virtual time %.4fs\n", name, finish)
		return nil
	},
}

// runScenario drives the operation each preset names, per
// presets.go's doc comment: FromPreset only fixes the shared
// configuration, the caller still picks PutFiles vs RegenerateBlocks
// vs the direct BreakDisk/RepairDisk path.
func runScenario(c *cluster.Cluster, name config.Preset) (float64, error) {
	switch name {
	case config.PresetDefaultWrite:
		return c.PutFiles(1, 100*1024*1024)
	case config.PresetLargeCluster:
		return c.PutFiles(30, 64*1024*1024)
	case config.PresetThrottledDisks:
		return c.PutFiles(30, 64*1024*1024)
	case config.PresetRegenerateThrottled:
		return c.RegenerateBlocks(90)
	case config.PresetHeartbeatOverhead:
		return c.RegenerateBlocks(30)
	case config.PresetSingleNodeBreakRepair:
		return runSingleNodeBreakRepair(c)
	default:
		return 0, &config.UnknownPresetError{Preset: name}
	}
}

// runSingleNodeBreakRepair reproduces spec.md §8 scenario 6 directly
// against the single datanode PresetSingleNodeBreakRepair builds: 11
// staggered 1001 MiB direct writes, the disk breaking at t=50 and
// repairing at t=80.
func runSingleNodeBreakRepair(c *cluster.Cluster) (float64, error) {
	datanodes := c.Datanodes()
	if len(datanodes) != 1 {
		return 0, fmt.Errorf("single-node-break-repair: expected exactly one datanode, got %d", len(datanodes))
	}
	dn := c.Datanode(datanodes[0])

	dn.BreakDisk(50)
	dn.RepairDisk(80)

	for _, start := range []float64{1, 1, 2, 3, 3, 3, 4, 9, 9, 9, 30} {
		c.Schedule(start, func() {
			dn.NewDiskWrite(1001 * 1024 * 1024)
		})
	}

	if err := c.RunUntil(500); err != nil {
		return 0, err
	}
	return c.Now(), nil
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Reporting helpers built on top of scenario runs",
}

// sweepResult pairs a scenario's virtual finish time with the real
// (wall-clock) time reportSweepCmd spent driving it, via
// metrics.Timer — distinct measurements: the virtual time is the
// simulated outcome, the wall time is how long this process actually
// took to compute it.
type sweepResult struct {
	finish float64
	wall   time.Duration
}

var reportSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run every named scenario except single-node-break-repair concurrently and print a finish-time table",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := []config.Preset{
			config.PresetDefaultWrite,
			config.PresetLargeCluster,
			config.PresetThrottledDisks,
			config.PresetRegenerateThrottled,
			config.PresetHeartbeatOverhead,
		}

		results := make([]sweepResult, len(names))
		var g errgroup.Group
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				cfg, err := config.FromPreset(name)
				if err != nil {
					return err
				}
				cfg = applySeedOverride(cmd, cfg)

				timer := metrics.NewTimer()
				c := cluster.NewCluster(cfg, log.WithComponent("cluster"))
				finish, err := runScenario(c, name)
				timer.ObserveDuration(metrics.ScenarioWallDuration.WithLabelValues(string(name)))
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				results[i] = sweepResult{finish: finish, wall: timer.Duration()}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("report sweep: %w", err)
		}

		fmt.Printf("%-28s %-20s %s\n", "SCENARIO", "FINISH (virtual s)", "WALL TIME")
		for i, name := range names {
			fmt.Printf("%-28s %-20.4f %s\n", name, results[i].finish, results[i].wall)
		}
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportSweepCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configDefaultCmd = &cobra.Command{
	Use:   "default PATH",
	Short: "Write config.Default() to PATH as YAML, for use as a scenario template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if err := cfg.WriteYAML(args[0]); err != nil {
			return err
		}
		fmt.Printf("wrote default config to %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configDefaultCmd)
}
