package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/piwi3910/SleevePlan/internal/hostmodel"
)

// Run loads geometry from the host model, plans the sleeves and commits
// them. A missing sleeve template stops the run before any geometry work.
func (e *Engine) Run(ctx context.Context, host hostmodel.Model, progress ProgressFunc) (*CommitResult, error) {
	if err := e.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid run config: %w", ErrConfigurationFatal, err)
	}
	if _, err := e.ResolveTemplate(ctx, host); err != nil {
		return nil, err
	}

	obstacles, err := host.Obstacles(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading obstacles: %w", err)
	}
	conduits, err := host.Conduits(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading conduits: %w", err)
	}

	plan, err := e.Plan(ctx, conduits, obstacles, progress)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	e.log.Debug("committing", zap.String("run", runID))
	return e.Commit(ctx, host, runID, plan)
}
