// Package engine computes permissible zones, finds conduit/obstacle
// crossings, proposes and screens sleeves and commits the survivors to the
// host model.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// ErrConfigurationFatal aborts a run before anything is written.
var ErrConfigurationFatal = errors.New("fatal configuration error")

// ProgressFunc receives the number of obstacles finished out of the total.
type ProgressFunc func(done, total int)

// Engine runs sleeve placement with one fixed configuration.
type Engine struct {
	Config model.RunConfig
	log    *zap.Logger
}

func New(cfg model.RunConfig, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Config: cfg, log: log}
}

// Plan is the read-only result of a run before anything is committed.
type Plan struct {
	Obstacles   int
	Conduits    int
	Zones       []model.PermissibleZone
	Candidates  []model.CandidateSleeve // Every generated candidate in key order
	Accepted    []model.CandidateSleeve // Survivors of validation and conflict resolution
	Conflicts   []Conflict
	Degenerate  int
	Diagnostics *Diagnostics
}

// obstacleResult is what one worker produces for one obstacle.
type obstacleResult struct {
	zones      []model.PermissibleZone
	candidates []model.CandidateSleeve
	degenerate int
}

// Plan builds zones and candidates for every obstacle in parallel, then
// validates and resolves the candidates on the calling goroutine. If ctx is
// cancelled the partial results are discarded and ctx.Err() is returned.
func (e *Engine) Plan(ctx context.Context, conduits []model.Conduit, obstacles []model.Obstacle, progress ProgressFunc) (*Plan, error) {
	if err := e.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid run config: %w", ErrConfigurationFatal, err)
	}
	start := time.Now()
	e.log.Info("planning sleeves",
		zap.Int("obstacles", len(obstacles)),
		zap.Int("conduits", len(conduits)))

	results, err := e.scan(ctx, conduits, obstacles, progress)
	if err != nil {
		e.log.Warn("planning cancelled", zap.Error(err))
		return nil, err
	}

	plan := &Plan{
		Obstacles:   len(obstacles),
		Conduits:    len(conduits),
		Diagnostics: NewDiagnostics(),
	}
	for _, r := range results {
		plan.Zones = append(plan.Zones, r.zones...)
		plan.Candidates = append(plan.Candidates, r.candidates...)
		plan.Degenerate += r.degenerate
	}
	sort.SliceStable(plan.Candidates, func(i, j int) bool {
		return plan.Candidates[i].Key.Less(plan.Candidates[j].Key)
	})

	valid := ValidateCandidates(plan.Candidates, e.Config, plan.Diagnostics)
	plan.Accepted, plan.Conflicts = ResolveConflicts(valid, e.Config, plan.Diagnostics)

	for _, msg := range FormatConflicts(plan.Conflicts) {
		e.log.Debug(msg)
	}
	e.log.Info("plan complete",
		zap.Int("zones", len(plan.Zones)),
		zap.Int("candidates", len(plan.Candidates)),
		zap.Int("valid", len(valid)),
		zap.Int("accepted", len(plan.Accepted)),
		zap.Int("degenerate", plan.Degenerate),
		zap.Duration("elapsed", time.Since(start)))
	return plan, nil
}

// scan runs the per-obstacle phases on a bounded worker pool. Each worker
// owns one slot of the result slice, so merging in slot order is
// independent of scheduling.
func (e *Engine) scan(ctx context.Context, conduits []model.Conduit, obstacles []model.Obstacle, progress ProgressFunc) ([]obstacleResult, error) {
	workers := e.Config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	builder := NewZoneBuilder(e.Config)
	results := make([]obstacleResult, len(obstacles))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range obstacles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.scanObstacle(builder, i, obstacles[i], conduits)

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(obstacles))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) scanObstacle(builder *ZoneBuilder, idx int, ob model.Obstacle, conduits []model.Conduit) obstacleResult {
	var r obstacleResult
	r.zones = builder.Build(ob)

	for ci, c := range conduits {
		rec := FindIntersections(c, ob)
		if !rec.Valid() {
			continue
		}
		cands, degenerate := GenerateCandidates(rec, c, ob, idx, ci, e.Config.Clearance)
		r.candidates = append(r.candidates, cands...)
		r.degenerate += degenerate
	}

	e.log.Debug("obstacle scanned",
		zap.String("obstacle", ob.ID),
		zap.Int("zones", len(r.zones)),
		zap.Int("candidates", len(r.candidates)))
	return r
}
