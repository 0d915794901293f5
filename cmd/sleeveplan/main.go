// SleevePlan places pipe and duct sleeves where conduits cross structural
// members, keeping them inside each member's permissible zone.
//
// Build:
//   go build -o sleeveplan ./cmd/sleeveplan
//
// Typical session:
//   sleeveplan config init
//   sleeveplan import scene.yaml
//   sleeveplan run --xlsx sleeves.xlsx --pdf sleeves.pdf
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/piwi3910/SleevePlan/internal/engine"
	"github.com/piwi3910/SleevePlan/internal/hostmodel"
	"github.com/piwi3910/SleevePlan/internal/model"
	"github.com/piwi3910/SleevePlan/internal/project"
)

const (
	envDB     = "SLEEVEPLAN_DB"
	envConfig = "SLEEVEPLAN_CONFIG"
)

var (
	// Global flags
	dbPath     string
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sleeveplan",
	Short: "SleevePlan - sleeve placement for conduits crossing beams",
	Long: `SleevePlan finds where pipes and ducts cross structural members,
builds the permissible opening zone on each member face and places one
sleeve per crossing, screening sizes and spacing along the way.

Geometry lives in a model database. Import a scene or schedule, then run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is normal.
		_ = godotenv.Load()
		if !cmd.Flags().Changed("db") {
			if v := os.Getenv(envDB); v != "" {
				dbPath = v
			}
		}
		if !cmd.Flags().Changed("config") {
			if v := os.Getenv(envConfig); v != "" {
				configPath = v
			}
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", project.DefaultDBPath(), "model database path (env "+envDB+")")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", project.DefaultConfigPath(), "run configuration file (env "+envConfig+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(importCmd, runCmd, reportCmd, compareCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode separates configuration problems from runtime failures.
func exitCode(err error) int {
	if errors.Is(err, engine.ErrConfigurationFatal) {
		return 2
	}
	return 1
}

func openStore() (*hostmodel.Store, error) {
	store, err := hostmodel.Open(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening model %s: %w", dbPath, err)
	}
	return store, nil
}

func loadConfig() (model.RunConfig, error) {
	cfg, err := project.LoadRunConfig(configPath)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", engine.ErrConfigurationFatal, err)
	}
	return cfg, nil
}
