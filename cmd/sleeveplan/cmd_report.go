package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piwi3910/SleevePlan/internal/hostmodel"
	"github.com/piwi3910/SleevePlan/internal/model"
	"github.com/piwi3910/SleevePlan/internal/report"
)

var reportOutputs outputs

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export the results of the last run",
	Long: `Reads the most recent run from the model and writes its summary, violation
tables, sleeve labels and drawing. Nothing is recomputed.

Example:
  sleeveplan report --xlsx violations.xlsx --labels labels.pdf`,
	Args: cobra.NoArgs,
	RunE: exportLastRun,
}

func init() {
	reportOutputs.register(reportCmd)
}

func exportLastRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	summary, err := store.LastRun(ctx)
	if err != nil {
		if errors.Is(err, hostmodel.ErrNotFound) {
			return errors.New("no runs recorded yet, use 'sleeveplan run' first")
		}
		return err
	}

	var tables []model.ReportTable
	for _, name := range []string{cfg.PipeReportName, cfg.DuctReportName} {
		t, err := store.Report(ctx, name)
		if errors.Is(err, hostmodel.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading report %q: %w", name, err)
		}
		tables = append(tables, t)
	}

	sleeves, err := store.Sleeves(ctx, summary.RunID)
	if err != nil {
		return fmt.Errorf("reading sleeves: %w", err)
	}
	zones, err := store.Zones(ctx, summary.RunID)
	if err != nil {
		return fmt.Errorf("reading zones: %w", err)
	}

	if err := report.WriteSummary(cmd.OutOrStdout(), summary, tables); err != nil {
		return err
	}
	return reportOutputs.write(summary, tables, zones, sleeves, cfg)
}
