package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piwi3910/SleevePlan/internal/engine"
	"github.com/piwi3910/SleevePlan/internal/model"
	"github.com/piwi3910/SleevePlan/internal/report"
)

// outputs are the optional export files shared by run and report.
type outputs struct {
	xlsx   string
	pdf    string
	labels string
	dxf    string
}

func (o *outputs) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "write violation workbook to this path")
	cmd.Flags().StringVar(&o.pdf, "pdf", "", "write PDF report to this path")
	cmd.Flags().StringVar(&o.labels, "labels", "", "write sleeve label sheet to this path")
	cmd.Flags().StringVar(&o.dxf, "dxf", "", "write zone and sleeve drawing to this path")
}

// write produces every requested export. Labels and drawings are skipped
// with a warning when the run left nothing to draw.
func (o *outputs) write(summary model.RunSummary, tables []model.ReportTable, zones []model.PermissibleZone, sleeves []model.PlacedSleeve, cfg model.RunConfig) error {
	if o.xlsx != "" {
		if err := report.ExportWorkbook(o.xlsx, summary, tables); err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
		logger.Info("wrote workbook", zap.String("path", o.xlsx))
	}
	if o.pdf != "" {
		if err := report.ExportPDF(o.pdf, summary, tables, cfg); err != nil {
			return fmt.Errorf("pdf: %w", err)
		}
		logger.Info("wrote pdf", zap.String("path", o.pdf))
	}
	if o.labels != "" {
		if len(sleeves) == 0 {
			logger.Warn("no sleeves to label", zap.String("path", o.labels))
		} else if err := report.ExportLabels(o.labels, sleeves); err != nil {
			return fmt.Errorf("labels: %w", err)
		} else {
			logger.Info("wrote labels", zap.String("path", o.labels), zap.Int("sleeves", len(sleeves)))
		}
	}
	if o.dxf != "" {
		if len(zones) == 0 && len(sleeves) == 0 {
			logger.Warn("nothing to draw", zap.String("path", o.dxf))
		} else if err := report.ExportDXF(o.dxf, zones, sleeves); err != nil {
			return fmt.Errorf("dxf: %w", err)
		} else {
			logger.Info("wrote drawing", zap.String("path", o.dxf))
		}
	}
	return nil
}

var (
	runOutputs  outputs
	keepZones   bool
	keepSleeves bool
	keepReport  bool
	runWorkers  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Place sleeves for every conduit crossing",
	Long: `Builds permissible zones on every obstacle, proposes a sleeve at each
conduit crossing, rejects oversized and crowded sleeves and commits the
rest to the model in a single transaction.

Toggle flags override the configuration file for this run only.

Example:
  sleeveplan run --report=false --dxf coordination.dxf`,
	Args: cobra.NoArgs,
	RunE: runPlacement,
}

func init() {
	runOutputs.register(runCmd)
	runCmd.Flags().BoolVar(&keepZones, "zones", true, "keep permissible zones in the model")
	runCmd.Flags().BoolVar(&keepSleeves, "sleeves", true, "keep placed sleeves in the model")
	runCmd.Flags().BoolVar(&keepReport, "report", true, "keep violation report tables in the model")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "obstacle worker count (0 uses all CPUs)")
}

func runPlacement(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("zones") {
		cfg.Toggles.Zones = keepZones
	}
	if flags.Changed("sleeves") {
		cfg.Toggles.Sleeves = keepSleeves
	}
	if flags.Changed("report") {
		cfg.Toggles.Report = keepReport
	}
	if flags.Changed("workers") {
		cfg.Workers = runWorkers
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	progress := func(done, total int) {
		logger.Debug("obstacles scanned", zap.Int("done", done), zap.Int("total", total))
	}
	res, err := engine.New(cfg, logger).Run(cmd.Context(), store, progress)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := report.WriteSummary(out, res.Summary, res.Tables); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d sleeves placed\n", res.Summary.Placed)

	return runOutputs.write(res.Summary, res.Tables, res.Zones, res.Sleeves, cfg)
}
