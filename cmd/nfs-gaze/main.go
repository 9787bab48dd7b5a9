// Command nfs-gaze is an iostat-like monitor for NFS mounts, driven by the
// kernel's mountstats report.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/blakegolliher/nfs-gaze/internal/config"
	"github.com/blakegolliher/nfs-gaze/internal/metrics"
	"github.com/blakegolliher/nfs-gaze/internal/monitor"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath     string
	mountPoint     string
	operations     string
	interval       time.Duration
	count          int
	showAttr       bool
	showBandwidth  bool
	nfsiostatMode  bool
	clearScreen    bool
	mountstatsPath string
	metricsEnabled bool
	metricsAddr    string
	debug          bool
}

func newRootCommand() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "nfs-gaze [flags] [mount_point] [interval] [count]",
		Short: "NFS I/O statistics monitor",
		Long: `Monitor NFS mount point I/O statistics in real time by parsing
/proc/self/mountstats. Displays operations per second, latency metrics, and
bandwidth statistics, and can expose them for Prometheus scraping.

Examples:
  # Monitor in nfsiostat format with attribute cache statistics
  nfs-gaze --nfsiostat /mnt/nfs --attr

  # Monitor specific operations with bandwidth
  nfs-gaze -m /mnt/nfs --ops READ,WRITE --bw

  # Expose metrics for Prometheus
  nfs-gaze -m /mnt/nfs --metrics.enabled --metrics.listen-addr :9099
`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: false,

		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, flags)
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVarP(&flags.mountPoint, "mount-point", "m", "", "Mount point to monitor (default: all NFS mounts)")
	cmd.Flags().StringVar(&flags.operations, "ops", "", "Comma-separated list of operations to monitor")
	cmd.Flags().DurationVarP(&flags.interval, "interval", "i", defaults.Interval, "Update interval")
	cmd.Flags().IntVarP(&flags.count, "count", "c", 0, "Number of iterations (0 = infinite)")
	cmd.Flags().BoolVar(&flags.showAttr, "attr", false, "Show attribute cache statistics")
	cmd.Flags().BoolVar(&flags.showBandwidth, "bw", false, "Show bandwidth statistics")
	cmd.Flags().BoolVar(&flags.nfsiostatMode, "nfsiostat", false, "Use nfsiostat output format")
	cmd.Flags().BoolVar(&flags.clearScreen, "clear", false, "Clear screen between iterations")
	cmd.Flags().StringVarP(&flags.mountstatsPath, "file", "f", defaults.MountstatsPath, "Path to mountstats file")
	cmd.Flags().BoolVar(&flags.metricsEnabled, "metrics.enabled", false, "Expose a Prometheus scrape endpoint")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics.listen-addr", defaults.Metrics.ListenAddress, "Address for the Prometheus scrape endpoint")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	return cmd
}

func run(cmd *cobra.Command, args []string, flags cliFlags) error {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if flags.debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	cfg, err := buildConfig(cmd, args, flags)
	if err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var exporter *metrics.Exporter
	if cfg.Metrics.Enabled {
		exporter = metrics.NewExporter()
		mux := http.NewServeMux()
		mux.Handle("/metrics", exporter.Handler())
		srv := &http.Server{Addr: cfg.Metrics.ListenAddress, Handler: mux}

		go func() {
			level.Info(logger).Log("msg", "serving metrics", "addr", cfg.Metrics.ListenAddress)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(logger).Log("msg", "metrics server failed", "err", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	mon := monitor.New(cfg, logger, os.Stdout, exporter)
	if err := mon.Run(ctx); err != nil {
		level.Error(logger).Log("msg", "monitoring failed", "err", err)
		return err
	}

	level.Info(logger).Log("msg", "monitoring stopped", "iterations", mon.Iteration())
	return nil
}

// buildConfig layers explicitly set flags over the config file over the
// defaults. Positional arguments [mount_point] [interval] [count] are
// accepted for nfsiostat(8) compatibility.
func buildConfig(cmd *cobra.Command, args []string, flags cliFlags) (config.Config, error) {
	cfg := config.Default()

	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	set := cmd.Flags().Changed
	if set("mount-point") {
		cfg.MountPoint = flags.mountPoint
	}
	if set("ops") {
		cfg.Operations = config.ParseOperationsList(flags.operations)
	}
	if set("interval") {
		cfg.Interval = flags.interval
	}
	if set("count") {
		cfg.Count = flags.count
	}
	if set("attr") {
		cfg.ShowAttr = flags.showAttr
	}
	if set("bw") {
		cfg.ShowBandwidth = flags.showBandwidth
	}
	if set("nfsiostat") {
		cfg.NfsiostatMode = flags.nfsiostatMode
	}
	if set("clear") {
		cfg.ClearScreen = flags.clearScreen
	}
	if set("file") {
		cfg.MountstatsPath = flags.mountstatsPath
	}
	if set("metrics.enabled") {
		cfg.Metrics.Enabled = flags.metricsEnabled
	}
	if set("metrics.listen-addr") {
		cfg.Metrics.ListenAddress = flags.metricsAddr
	}

	if len(args) > 0 && cfg.MountPoint == "" {
		cfg.MountPoint = args[0]
	}
	if len(args) > 1 {
		if secs, err := strconv.Atoi(args[1]); err == nil {
			cfg.Interval = time.Duration(secs) * time.Second
		}
	}
	if len(args) > 2 {
		if count, err := strconv.Atoi(args[2]); err == nil {
			cfg.Count = count
		}
	}

	return cfg, cfg.Validate()
}
