package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// ComparisonScenario is a named configuration to plan with.
type ComparisonScenario struct {
	Name   string
	Config model.RunConfig
}

// ComparisonResult holds the dry-run plan and its headline numbers for one
// scenario.
type ComparisonResult struct {
	Scenario   ComparisonScenario
	Plan       *Plan
	Zones      int
	Candidates int
	Accepted   int
	Conflicts  int
	Violations int
}

// CompareScenarios plans the same geometry under each scenario without
// committing anything, so parameter changes can be judged side by side.
// Results keep the scenario order.
func (e *Engine) CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, conduits []model.Conduit, obstacles []model.Obstacle) ([]ComparisonResult, error) {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, sc := range scenarios {
		plan, err := New(sc.Config, e.log).Plan(ctx, conduits, obstacles, nil)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		results = append(results, ComparisonResult{
			Scenario:   sc,
			Plan:       plan,
			Zones:      len(plan.Zones),
			Candidates: len(plan.Candidates),
			Accepted:   len(plan.Accepted),
			Conflicts:  len(plan.Conflicts),
			Violations: plan.Diagnostics.Len(),
		})
	}
	return results, nil
}

// BuildDefaultScenarios varies the current configuration in the ways that
// most often change the outcome of a run.
func BuildDefaultScenarios(base model.RunConfig) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{Name: "Current Settings", Config: base},
	}

	alt := base
	if base.TieBreak == model.TieBreakRemoveEarlier {
		alt.TieBreak = model.TieBreakRemoveLater
	} else {
		alt.TieBreak = model.TieBreakRemoveEarlier
	}
	scenarios = append(scenarios, ComparisonScenario{
		Name:   fmt.Sprintf("Tie-break %s", alt.TieBreak),
		Config: alt,
	})

	if base.ProximityMultiplier > 0.5 {
		relaxed := base
		relaxed.ProximityMultiplier = 0.5
		scenarios = append(scenarios, ComparisonScenario{
			Name:   "Spacing 0.5x",
			Config: relaxed,
		})
	}

	if base.Clearance > 25 {
		tight := base
		tight.Clearance = base.Clearance / 2
		scenarios = append(scenarios, ComparisonScenario{
			Name:   fmt.Sprintf("Clearance %.0fmm (half)", tight.Clearance),
			Config: tight,
		})
	}

	return scenarios
}
