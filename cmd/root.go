package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soocke/debuff-tracker-go/config"
)

// Version is the application version.
const Version = "0.3.0"

var (
	cfgPath   string
	debugMode bool
	assetsDir string
	headless  bool

	newLogger = func(level slog.Leveler) *slog.Logger {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
)

var rootCmd = &cobra.Command{
	Use:          "debuff-tracker",
	Short:        "Watch screen regions for status markers and overlay their icons",
	Version:      Version,
	SilenceUsage: true,
	RunE:         runTracker,
}

// Execute runs the command tree. factory builds the process logger once the
// log level is known. SIGINT and SIGTERM cancel the command context.
func Execute(factory func(slog.Leveler) *slog.Logger) {
	if factory != nil {
		newLogger = factory
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "settings.json", "settings file (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "debug logging and runtime metrics")
	rootCmd.PersistentFlags().StringVar(&assetsDir, "assets", "", "template and icon directory (overrides assets_dir)")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "log transitions instead of showing the overlay")
}

// loadSettings reads the settings file and applies flag overrides. Repaired
// entries are logged; an unreadable document is an error so it is never
// overwritten with defaults.
func loadSettings(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debugMode
	}
	if assetsDir != "" {
		cfg.AssetsDir = assetsDir
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := newLogger(level).With("version", Version)
	switch {
	case err == nil:
	case errors.Is(err, config.ErrInvalidEntry):
		logger.Warn("settings repaired", "path", cfgPath, "error", err)
	default:
		return nil, logger, fmt.Errorf("load settings %s: %w", cfgPath, err)
	}
	return cfg, logger, nil
}
