package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"msfcomp/internal/config"
	"msfcomp/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Resolved configuration
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "msfcomp",
	Short: "msfcomp - validate, parse and store msf record files",
	Long: `msfcomp reads line-oriented msf records of the form

  id NAME /field value /other -12.3 /;

validates each line against the record grammar, and can emit the parsed
fields, store them in SQLite, or keep a directory in sync with the store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.msfcomp/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Operation timeout (0 = none)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(batchesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves the workspace, loads configuration and starts file logging.
func setup() error {
	if workspace == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve workspace: %w", err)
		}
		workspace = cwd
	}
	if configPath == "" {
		configPath = filepath.Join(workspace, ".msfcomp", "config.yaml")
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	cfg = loaded

	if err := logging.Initialize(workspace, cfg.Logging); err != nil {
		logger.Warn("File logging disabled", zap.Error(err))
	}
	logging.Boot("Config resolved from %s", configPath)
	logging.BootDebug("workers=%d extensions=%v database=%s debounce=%s",
		cfg.Scan.Workers, cfg.Input.Extensions, databasePath(), cfg.Watch.Debounce)
	logger.Debug("Configuration loaded",
		zap.String("config", configPath),
		zap.String("workspace", workspace),
		zap.Int("workers", cfg.Scan.Workers))
	return nil
}

// commandContext derives the context for a command, honoring --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(base, timeout)
	}
	return context.WithCancel(base)
}

// databasePath resolves the configured database path against the workspace.
func databasePath() string {
	p := cfg.Store.DatabasePath
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}
