package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piwi3910/SleevePlan/internal/hostmodel"
	"github.com/piwi3910/SleevePlan/internal/importer"
	"github.com/piwi3910/SleevePlan/internal/model"
)

var (
	importBottom    float64
	importTop       float64
	importTemplates []string
)

var importCmd = &cobra.Command{
	Use:   "import [file...]",
	Short: "Load obstacles and conduits into the model",
	Long: `Imports geometry into the model database. The format follows the extension:

  .yaml, .yml   scene with obstacles, conduits and sleeve templates
  .csv          conduit schedule (id, category, diameter, start and end points)
  .xlsx         conduit schedule, first sheet
  .dxf          member outlines in plan, extruded between --bottom and --top

Example:
  sleeveplan import level2.dxf --bottom 2400 --top 3000
  sleeveplan import services.csv --template "Round Sleeve"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Float64Var(&importBottom, "bottom", 0, "underside elevation for DXF members (mm)")
	importCmd.Flags().Float64Var(&importTop, "top", 0, "top elevation for DXF members (mm)")
	importCmd.Flags().StringSliceVar(&importTemplates, "template", nil, "sleeve template names to register")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if len(importTemplates) > 0 {
		templates := make([]model.SleeveTemplate, 0, len(importTemplates))
		for _, name := range importTemplates {
			templates = append(templates, model.SleeveTemplate{Name: name, Family: "Sleeves"})
		}
		if err := store.PutTemplates(ctx, templates...); err != nil {
			return fmt.Errorf("registering templates: %w", err)
		}
	}

	for _, path := range args {
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			scene, err := importer.LoadScene(path)
			if err != nil {
				return err
			}
			nObs, nConduits, err := scene.Load(ctx, store)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d obstacles, %d conduits\n", path, nObs, nConduits)
			continue
		}

		var result importer.ImportResult
		switch ext {
		case ".csv":
			result = importer.ImportCSV(path)
		case ".xlsx", ".xlsm":
			result = importer.ImportExcel(path)
		case ".dxf":
			result = importer.ImportDXF(path, importer.DXFOptions{Bottom: importBottom, Top: importTop})
		default:
			return fmt.Errorf("%s: unsupported file type %q", path, ext)
		}
		if err := storeResult(cmd, store, path, result); err != nil {
			return err
		}
	}
	return nil
}

// storeResult logs the importer's warnings and writes what it produced.
// Row errors abort the file so a partial schedule never reaches the model.
func storeResult(cmd *cobra.Command, store *hostmodel.Store, path string, result importer.ImportResult) error {
	for _, w := range result.Warnings {
		logger.Warn(w, zap.String("file", path))
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			logger.Error(e, zap.String("file", path))
		}
		return fmt.Errorf("%s: %d errors, nothing imported", path, len(result.Errors))
	}

	ctx := cmd.Context()
	if err := store.PutObstacles(ctx, result.Obstacles...); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := store.PutConduits(ctx, result.Conduits...); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d obstacles, %d conduits\n", path, len(result.Obstacles), len(result.Conduits))
	return nil
}
