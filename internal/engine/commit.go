package engine

import (
	"context"
	"errors"
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/piwi3910/SleevePlan/internal/geom"
	"github.com/piwi3910/SleevePlan/internal/hostmodel"
	"github.com/piwi3910/SleevePlan/internal/model"
)

// sleeveAxis is the local axis of a sleeve template before rotation.
var sleeveAxis = v3.Vec{X: 0, Y: 0, Z: 1}

// CommitResult lists what a commit wrote.
type CommitResult struct {
	Summary model.RunSummary
	Sleeves []model.PlacedSleeve // Sleeves still present after toggles were applied
	Zones   []model.PermissibleZone
	Tables  []model.ReportTable
}

// ResolveTemplate looks up the configured sleeve template. A missing
// template is a fatal configuration error.
func (e *Engine) ResolveTemplate(ctx context.Context, host hostmodel.Model) (model.SleeveTemplate, error) {
	tmpl, err := host.SleeveTemplate(ctx, e.Config.SleeveTemplate)
	if err != nil {
		if errors.Is(err, hostmodel.ErrTemplateNotFound) {
			return model.SleeveTemplate{}, fmt.Errorf("%w: %w", ErrConfigurationFatal, err)
		}
		return model.SleeveTemplate{}, fmt.Errorf("resolving sleeve template %q: %w", e.Config.SleeveTemplate, err)
	}
	return tmpl, nil
}

// Commit writes a plan to the host model in one mutation: zones and their
// view filter, the accepted sleeves, containment flags, annotations and
// report tables. Sleeves outside every zone are kept and flagged. Disabled
// toggles delete this run's artifacts of that kind before the mutation
// ends. The template is resolved before anything is written.
func (e *Engine) Commit(ctx context.Context, host hostmodel.Model, runID string, plan *Plan) (*CommitResult, error) {
	tmpl, err := e.ResolveTemplate(ctx, host)
	if err != nil {
		return nil, err
	}
	cfg := e.Config

	shapes := make([]*geom.ZoneShape, 0, len(plan.Zones))
	for _, z := range plan.Zones {
		zs, err := geom.NewZoneShape(z)
		if err != nil {
			e.log.Debug("skipping zone shape", zap.String("zone", z.ID), zap.Error(err))
			continue
		}
		shapes = append(shapes, zs)
	}

	// Containment flags reach plan.Diagnostics only once the mutation has
	// committed.
	type flag struct {
		conduitID string
		category  model.Category
	}
	var outOfZone []flag

	res := &CommitResult{}
	err = host.Mutate(ctx, func(m hostmodel.Mutation) error {
		outOfZone = outOfZone[:0]
		diag := plan.Diagnostics.Clone()

		filterID, err := m.EnsureFilter(cfg.FilterName, cfg.ZoneStyle)
		if err != nil {
			return fmt.Errorf("ensuring filter %q: %w", cfg.FilterName, err)
		}
		if err := m.ApplyFilter(cfg.ViewName, filterID); err != nil {
			return fmt.Errorf("applying filter to view %q: %w", cfg.ViewName, err)
		}
		for _, z := range plan.Zones {
			if err := m.AddZone(runID, z); err != nil {
				return fmt.Errorf("adding zone %s: %w", z.ID, err)
			}
		}

		placed := make([]model.PlacedSleeve, 0, len(plan.Accepted))
		for _, c := range plan.Accepted {
			s := model.NewPlacedSleeve(runID, tmpl.Name, c)
			s.RotationAxis, s.RotationAngle = geom.RotationTo(sleeveAxis, c.Direction)
			if err := m.PlaceSleeve(s); err != nil {
				return fmt.Errorf("placing sleeve for conduit %s: %w", c.ConduitID, err)
			}
			placed = append(placed, s)
		}

		// Containment is advisory and runs against what was placed.
		for i := range placed {
			s := &placed[i]
			s.InZone = geom.AnyContains(shapes, s.Position, cfg.ContainmentTolerance)
			if err := m.MarkSleeve(s.ID, s.InZone); err != nil {
				return fmt.Errorf("marking sleeve %s: %w", s.ID, err)
			}
			if !s.InZone {
				cat := plan.Accepted[i].ConduitCategory
				diag.Record(s.ConduitID, cat, model.OutOfPermissibleRange)
				outOfZone = append(outOfZone, flag{s.ConduitID, cat})
			}
		}

		zones := plan.Zones
		if !cfg.Toggles.Zones {
			if _, err := m.DeleteZones(runID); err != nil {
				return fmt.Errorf("deleting zones: %w", err)
			}
			zones = nil
		}
		if !cfg.Toggles.Sleeves {
			if _, err := m.DeleteSleeves(runID); err != nil {
				return fmt.Errorf("deleting sleeves: %w", err)
			}
			placed = nil
		}

		violations := diag.Snapshot()
		tables, err := e.writeReports(m, violations)
		if err != nil {
			return err
		}

		summary := model.RunSummary{
			RunID:      runID,
			Obstacles:  plan.Obstacles,
			Conduits:   plan.Conduits,
			Zones:      len(zones),
			Candidates: len(plan.Candidates),
			Placed:     len(placed),
			Degenerate: plan.Degenerate,
			Rejected:   diag.Counts(),
			Violations: violations,
		}
		if err := m.RecordRun(summary); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}

		res.Summary = summary
		res.Sleeves = placed
		res.Zones = zones
		res.Tables = tables
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("committing run %s: %w", runID, err)
	}
	for _, f := range outOfZone {
		plan.Diagnostics.Record(f.conduitID, f.category, model.OutOfPermissibleRange)
	}

	e.log.Info("run committed",
		zap.String("run", runID),
		zap.Int("placed", res.Summary.Placed),
		zap.Int("zones", res.Summary.Zones),
		zap.Int("violations", res.Summary.ViolationCount()))
	return res, nil
}

// writeReports annotates conduits and replaces the report tables. With the
// report toggle off the tables are deleted instead.
func (e *Engine) writeReports(m hostmodel.Mutation, violations []model.ConduitViolations) ([]model.ReportTable, error) {
	cfg := e.Config
	if cfg.ClearPreviousAnnotations {
		n, err := m.ClearAnnotations()
		if err != nil {
			return nil, fmt.Errorf("clearing annotations: %w", err)
		}
		e.log.Debug("cleared annotations", zap.Int("count", n))
	}
	for _, cv := range violations {
		if err := m.Annotate(cv.ConduitID, cv.Message()); err != nil {
			return nil, fmt.Errorf("annotating conduit %s: %w", cv.ConduitID, err)
		}
	}

	tables := BuildTables(violations, cfg)
	for _, t := range tables {
		if !cfg.Toggles.Report {
			if err := m.DeleteReport(t.Name); err != nil {
				return nil, fmt.Errorf("deleting report %q: %w", t.Name, err)
			}
			continue
		}
		if err := m.ReplaceReport(t); err != nil {
			return nil, fmt.Errorf("writing report %q: %w", t.Name, err)
		}
	}
	if !cfg.Toggles.Report {
		return nil, nil
	}
	return tables, nil
}
