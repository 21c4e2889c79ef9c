package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"realestate-market/models"
	"realestate-market/services"
	"realestate-market/storage"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh pass and print the market report.",
	Long: `Fetches every enabled source once, in the same order as the scheduler,
then prints per-source statistics and the combined quartile report.
With --export the cleaned listings are also written to a CSV file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		a := newApp(cfg, logger)
		ctx := cmd.Context()

		report, _ := a.scheduler.TriggerRefreshNow(ctx)
		noColor, _ := cmd.Flags().GetBool("no-color")
		printer := services.NewReportPrinter(cmd.OutOrStdout(), !noColor)

		if err := printer.PrintRefresh(report); err != nil {
			return err
		}

		var stats []*models.MarketStats
		if s, _, err := a.market.ProimobilStats(ctx); err == nil {
			stats = append(stats, s)
		}
		if s, _, err := a.market.AccesimobilStats(ctx); err == nil {
			stats = append(stats, s)
		}
		if s, _, err := a.market.MD999Stats(ctx); err == nil {
			stats = append(stats, s)
		} else if !errors.Is(err, services.ErrSourceDisabled) {
			logger.Warn("[refresh] 999md stats unavailable: %v", err)
		}
		if err := printer.PrintSources(stats); err != nil {
			return err
		}
		if err := printer.PrintQuartiles(a.market.Quartiles(ctx)); err != nil {
			return err
		}
		if insights, _, err := a.market.Insights(ctx); err == nil {
			if err := printer.PrintInsights(insights); err != nil {
				return err
			}
		}

		if path, _ := cmd.Flags().GetString("export"); path != "" {
			if path == "-" {
				path = cfg.ExportPath
			}
			if err := exportCSV(cmd, a, path); err != nil {
				return err
			}
		}

		if failed := report.Failed(); len(failed) == len(report.Outcomes) && len(failed) > 0 {
			return fmt.Errorf("every source failed: %v", failed)
		}
		return nil
	},
}

func exportCSV(cmd *cobra.Command, a *app, path string) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	n, err := a.market.Export(cmd.Context(), w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	cmd.Printf("  Exported %d listings → %s\n", n, path)
	return nil
}

func init() {
	refreshCmd.Flags().String("export", "", "write the cleaned listings to a CSV file (bare --export uses APP_EXPORT_PATH)")
	refreshCmd.Flags().Bool("no-color", false, "disable colored output")
	refreshCmd.Flags().Lookup("export").NoOptDefVal = "-"
}
