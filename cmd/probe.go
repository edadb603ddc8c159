package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soocke/debuff-tracker-go/app"
	"github.com/soocke/debuff-tracker-go/domain/capture"
	"github.com/soocke/debuff-tracker-go/domain/match"
	"github.com/soocke/debuff-tracker-go/domain/monitor"
)

var (
	probeRegion    string
	probeTemplate  string
	probeThreshold float64
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Capture a region once and print the match score of a template",
	Long: `Probe grabs the given screen region, matches one template against it and
prints the best score. Use it to pick a match threshold for a marker.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeRegion, "region", "", "screen region as x,y,w,h")
	probeCmd.Flags().StringVar(&probeTemplate, "template", "", "template reference, relative to the assets directory")
	probeCmd.Flags().Float64Var(&probeThreshold, "threshold", monitor.DefaultMatchThreshold, "detection threshold")
	_ = probeCmd.MarkFlagRequired("region")
	_ = probeCmd.MarkFlagRequired("template")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	r, err := app.ParseRegion(probeRegion)
	if err != nil {
		return err
	}
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	store, err := match.NewTemplateStore(cfg.AssetsDir, 1)
	if err != nil {
		return err
	}
	res, err := app.Probe(capture.NewScreenSource(logger), match.NCCMatcher{}, store, r, probeTemplate, probeThreshold)
	if err != nil {
		return fmt.Errorf("probe %s: %w", probeTemplate, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "region=%v template=%dx%d score=%.4f threshold=%.3f detected=%t elapsed=%s\n",
		res.Region, res.Template.Dx(), res.Template.Dy(), res.Score, res.Threshold, res.Detected, res.Elapsed)
	return nil
}
