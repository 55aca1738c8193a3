package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hdrgen/internal/config"
	"hdrgen/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string
	logFormat  string

	// Logger
	logger *zap.Logger
	runID  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hdrgen",
	Short: "Generate C++ configuration headers from templates",
	Long: `hdrgen renders header templates at build time.

It substitutes @TOKEN@ placeholders with values taken from a caller-supplied
mapping, from probing the C++ toolchain for smart-pointer support, or from
the project's configure.ac and source-control revision.

Run one command per header as a build step:
  hdrgen memory  -i include/linear/memory.h.in  -o include/linear/memory.h
  hdrgen version -c configure.ac -i include/linear/version.h.in -o include/linear/version.h`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return argErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
		}
		return nil
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger(logging.Options{Format: logFormat})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = cmd.Help()
		return argErrorf("a command is required")
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Dotenv file loaded before environment overrides")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json (default from config)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &argumentError{err: err}
	})

	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(allCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, "hdrgen:", err)
	}
	os.Exit(exitCode(err))
}

// initLogger installs the process logger. Verbose forces debug level.
func initLogger(opts logging.Options) error {
	if verbose {
		opts.Level = "debug"
	}
	l, err := logging.New(opts)
	if err != nil {
		return argErrorf("failed to initialize logger: %v", err)
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = l.With(zap.String("run_id", runID))
	logging.Initialize(logger)
	return nil
}

// loadConfig loads the configuration named by the global flags and
// reconfigures logging from it.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
		logging.BootDebug("Loaded environment from %s", envFile)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	format := logFormat
	if format == "" {
		format = cfg.Logging.Format
	}
	if err := initLogger(logging.Options{Level: cfg.Logging.Level, Format: format}); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded",
		zap.String("path", configPath),
		zap.String("probe_mode", cfg.Probe.Mode),
		zap.Strings("probe_order", cfg.Probe.Order),
		zap.String("compiler", cfg.Probe.Compiler))
	return cfg, nil
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
