package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/soocke/debuff-tracker-go/app"
	"github.com/soocke/debuff-tracker-go/config"
	"github.com/soocke/debuff-tracker-go/domain/match"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the settings file and every referenced image without monitoring",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(cfgPath)
	issues := 0
	if err != nil {
		if !errors.Is(err, config.ErrInvalidEntry) {
			return fmt.Errorf("load settings %s: %w", cfgPath, err)
		}
		for _, e := range unjoin(err) {
			fmt.Fprintln(out, "settings:", e)
			issues++
		}
	}
	if assetsDir != "" {
		cfg.AssetsDir = assetsDir
	}
	store, err := match.NewTemplateStore(cfg.AssetsDir, len(cfg.Markers)+len(cfg.Categories))
	if err != nil {
		return err
	}
	problems := app.CheckAssets(cfg, store)
	if len(problems) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "OWNER\tKIND\tREFERENCE\tERROR")
		fmt.Fprintln(w, "-----\t----\t---------\t-----")
		for _, p := range problems {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", p.Owner, p.Kind, p.Ref, p.Err)
		}
		w.Flush()
	}
	issues += len(problems)
	if issues > 0 {
		return fmt.Errorf("%s: %d problem(s) found", cfgPath, issues)
	}
	fmt.Fprintf(out, "%s: %d markers, %d categories, all assets load\n", cfgPath, len(cfg.Markers), len(cfg.Categories))
	return nil
}

// unjoin flattens an errors.Join tree one level.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
