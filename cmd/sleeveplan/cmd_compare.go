package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/piwi3910/SleevePlan/internal/engine"
	"github.com/piwi3910/SleevePlan/internal/project"
)

var (
	compareProfiles string
	compareDefaults bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Dry-run the model under several parameter sets",
	Long: `Plans the current model under the configured parameters, a few built-in
variations and every profile in the profiles file, without writing anything.

A profile lists only the keys it changes:

  profiles:
    - name: Tight spacing
      config: {proximity_multiplier: 1.0}`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareProfiles, "profiles", project.DefaultProfilesPath(), "scenario profiles file")
	compareCmd.Flags().BoolVar(&compareDefaults, "defaults", true, "include the built-in variations")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	profiles, err := project.LoadProfiles(compareProfiles, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrConfigurationFatal, err)
	}

	var scenarios []engine.ComparisonScenario
	if compareDefaults {
		scenarios = engine.BuildDefaultScenarios(cfg)
	} else {
		scenarios = []engine.ComparisonScenario{{Name: "Current Settings", Config: cfg}}
	}
	for _, p := range profiles {
		scenarios = append(scenarios, engine.ComparisonScenario{Name: p.Name, Config: p.Config})
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	obstacles, err := store.Obstacles(ctx)
	if err != nil {
		return fmt.Errorf("loading obstacles: %w", err)
	}
	conduits, err := store.Conduits(ctx)
	if err != nil {
		return fmt.Errorf("loading conduits: %w", err)
	}

	results, err := engine.New(cfg, logger).CompareScenarios(ctx, scenarios, conduits, obstacles)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Scenario\tZones\tCandidates\tAccepted\tConflicts\tViolations\t")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t\n",
			r.Scenario.Name, r.Zones, r.Candidates, r.Accepted, r.Conflicts, r.Violations)
	}
	return w.Flush()
}
