package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/debuff-tracker-go/app"
	"github.com/soocke/debuff-tracker-go/app/gui"
	"github.com/soocke/debuff-tracker-go/debug"
)

// shutdownSlack is added to the per-monitor grace so the parallel stop has
// time to report.
const shutdownSlack = 500 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start monitoring (the default command)",
	RunE:  runTracker,
}

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "log transitions instead of showing the overlay")
	rootCmd.AddCommand(runCmd)
}

func runTracker(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if cfg.Debug {
		debug.StartGoroutineLogger(ctx, 5*time.Second, logger)
		debug.StartMemLogger(ctx, 5*time.Second, logger)
	}
	c, err := app.BuildContainer(cfg, cfgPath, logger)
	if err != nil {
		return err
	}
	logger.Info("starting", "config", cfgPath, "categories", len(cfg.Categories), "markers", len(cfg.Markers), "headless", headless)
	grace := cfg.StopGrace() + shutdownSlack
	if headless {
		return app.RunHeadless(ctx, c, grace)
	}
	return gui.Run(ctx, c, "Debuff Tracker", grace)
}
