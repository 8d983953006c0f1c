package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkessler/treesyncd/internal/config"
	"github.com/mkessler/treesyncd/internal/logging"
	"github.com/mkessler/treesyncd/internal/mirror"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile  string
	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "treesyncd",
	Short: "Mirror a source directory tree into a replica, periodically",
	Long: `treesyncd keeps a replica directory as an exact one-way mirror of a
source directory. Each cycle walks the full source tree, creates missing
directories, copies files whose content digest differs, and removes
replica entries that no longer exist in the source.

Comparison is by content digest, never by timestamps.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run [SOURCE REPLICA INTERVAL LOGFILE]",
	Short: "Run the mirror loop until interrupted",
	Long: `Run validates its parameters, then reconciles the replica against the
source every INTERVAL seconds until interrupted.

Parameters come either from the four positional arguments (source path,
replica path, interval in seconds, log file path) or from a YAML config
file given with --config.`,
	Args: cobra.MaximumNArgs(4),
	RunE: runLoop,
}

var syncCmd = &cobra.Command{
	Use:   "sync [SOURCE REPLICA INTERVAL LOGFILE]",
	Short: "Perform a single reconciliation cycle and exit",
	Long: `Sync performs exactly one reconciliation cycle and exits. Parameters
and validation are identical to run; the interval is validated but only
used for scheduling by run. Suited to external schedulers such as
systemd timers.`,
	Args: cobra.MaximumNArgs(4),
	RunE: runOnce,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("treesyncd %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (alternative to positional arguments)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

func runLoop(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	cfg, logger, closeLog, err := setup(args)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog()
	}()

	rec := mirror.NewReconciler(cfg.Source, cfg.Replica, logger)
	loop := mirror.NewLoop(rec, time.Duration(cfg.Interval)*time.Second, logger)

	return loop.Run(ctx)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup(args)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog()
	}()

	logger.Info("starting synchronization cycle")
	res, err := mirror.NewReconciler(cfg.Source, cfg.Replica, logger).Run()
	if err != nil {
		logger.Error("synchronization cycle aborted", "error", err)
		return err
	}
	logger.Info("synchronization cycle complete",
		"actions", len(res.Actions),
		"failures", len(res.Failures))
	return nil
}

// setup resolves the configuration, builds the logger, and runs the
// startup validation. A validation failure is logged and returned so
// the process exits without starting any cycle.
func setup(args []string) (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := resolveConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, nil, err
	}

	logger, closeLog := logging.New(logging.Options{
		Path:  cfg.LogFile,
		Level: parseLevel(logLevel),
	})

	if err := cfg.Validate(); err != nil {
		logger.Error(err.Error())
		_ = closeLog()
		return nil, nil, nil, err
	}

	return cfg, logger, closeLog, nil
}

// resolveConfig reads parameters from --config when given, otherwise
// from the four positional arguments.
func resolveConfig(args []string) (*config.Config, error) {
	if cfgFile != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--config and positional arguments are mutually exclusive")
		}
		return config.Load(cfgFile)
	}
	return config.FromArgs(args)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
