package engine

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/SleevePlan/internal/hostmodel"
	"github.com/piwi3910/SleevePlan/internal/model"
)

// newTestHost opens a store with the default sleeve template and the given
// geometry.
func newTestHost(t *testing.T, conduits []model.Conduit, obstacles ...model.Obstacle) *hostmodel.Store {
	t.Helper()
	ctx := context.Background()
	s, err := hostmodel.Open(filepath.Join(t.TempDir(), "model.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.PutTemplates(ctx, model.SleeveTemplate{Name: "Round Sleeve", Family: "Sleeves"}))
	require.NoError(t, s.PutObstacles(ctx, obstacles...))
	require.NoError(t, s.PutConduits(ctx, conduits...))
	return s
}

func TestRun_PlacesSleeveRotatedToConduit(t *testing.T) {
	ctx := context.Background()
	host := newTestHost(t, []model.Conduit{crossing("p1", 1000, 300, 100)}, testBeam("b1", 0))

	res, err := New(defaultTestConfig(), nil).Run(ctx, host, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Placed)
	assert.Equal(t, 2, res.Summary.Zones)
	assert.Zero(t, res.Summary.ViolationCount())

	sleeves, err := host.Sleeves(ctx, res.Summary.RunID)
	require.NoError(t, err)
	require.Len(t, sleeves, 1)
	s := sleeves[0]
	assert.Equal(t, "Round Sleeve", s.Template)
	assert.Equal(t, "p1", s.ConduitID)
	assertVec(t, vec(1000, 150, 300), s.Position)
	assert.InDelta(t, 150.0, s.Diameter, 1e-9)
	assert.InDelta(t, 300.0, s.Length, 1e-9)
	assert.InDelta(t, math.Pi/2, s.RotationAngle, 1e-9)
	assertVec(t, vec(-1, 0, 0), s.RotationAxis)
	assert.True(t, s.InZone)

	zones, err := host.Zones(ctx, res.Summary.RunID)
	require.NoError(t, err)
	assert.Len(t, zones, 2)

	views, err := host.ViewFilters(ctx, "Coordination 3D")
	require.NoError(t, err)
	assert.Equal(t, []string{"Permissible Zones"}, views)
}

func TestRun_MissingTemplateIsFatalAndWritesNothing(t *testing.T) {
	ctx := context.Background()
	host := newTestHost(t, []model.Conduit{crossing("p1", 1000, 300, 100)}, testBeam("b1", 0))

	cfg := defaultTestConfig()
	cfg.SleeveTemplate = "Missing Sleeve"
	_, err := New(cfg, nil).Run(ctx, host, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigurationFatal))
	assert.True(t, errors.Is(err, hostmodel.ErrTemplateNotFound))

	sleeves, err := host.Sleeves(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, sleeves)
	zones, err := host.Zones(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, zones)
	_, err = host.LastRun(ctx)
	assert.ErrorIs(t, err, hostmodel.ErrNotFound)
}

func TestRun_InvalidConfigIsFatal(t *testing.T) {
	host := newTestHost(t, []model.Conduit{crossing("p1", 1000, 300, 100)}, testBeam("b1", 0))

	cfg := defaultTestConfig()
	cfg.Workers = -1
	_, err := New(cfg, nil).Run(context.Background(), host, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigurationFatal)
	assert.Contains(t, err.Error(), "workers")
}

func TestCommit_OutOfZoneSleeveIsPlacedAndFlagged(t *testing.T) {
	ctx := context.Background()
	// x = 100 lies inside the width margin of the 600 high beam.
	host := newTestHost(t, []model.Conduit{crossing("p1", 100, 300, 100)}, testBeam("b1", 0))

	res, err := New(defaultTestConfig(), nil).Run(ctx, host, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Placed)
	require.Len(t, res.Summary.Violations, 1)
	assert.Equal(t, []model.ViolationKind{model.OutOfPermissibleRange}, res.Summary.Violations[0].Kinds)

	sleeves, err := host.Sleeves(ctx, res.Summary.RunID)
	require.NoError(t, err)
	require.Len(t, sleeves, 1)
	assert.False(t, sleeves[0].InZone)

	pipes, err := host.Report(ctx, "Sleeve Violations - Pipes")
	require.NoError(t, err)
	require.Len(t, pipes.Rows, 1)
	assert.Equal(t, model.ReportRow{Mark: 1, ConduitID: "p1", Message: "Sleeve outside permissible zone"}, pipes.Rows[0])

	notes, err := host.Annotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sleeve outside permissible zone", notes["p1"])
}

func TestRun_ReportsPerCategory(t *testing.T) {
	ctx := context.Background()
	duct := crossing("d1", 1500, 300, 900)
	duct.Category = model.CategoryDuct
	conduits := []model.Conduit{
		crossing("p1", 500, 300, 50),
		crossing("p2", 550, 300, 50),
		duct,
	}
	host := newTestHost(t, conduits, testBeam("b1", 0))

	_, err := New(defaultTestConfig(), nil).Run(ctx, host, nil)
	require.NoError(t, err)

	pipes, err := host.Report(ctx, "Sleeve Violations - Pipes")
	require.NoError(t, err)
	assert.Equal(t, []model.ReportRow{{Mark: 1, ConduitID: "p2", Message: "Sleeve too close to adjacent sleeve"}}, pipes.Rows)

	ducts, err := host.Report(ctx, "Sleeve Violations - Ducts")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryDuct, ducts.Category)
	assert.Equal(t, []model.ReportRow{{Mark: 1, ConduitID: "d1", Message: "Sleeve diameter exceeds maximum size"}}, ducts.Rows)
}

func TestRun_TogglesDeleteArtifacts(t *testing.T) {
	ctx := context.Background()
	host := newTestHost(t, []model.Conduit{crossing("p1", 1000, 300, 800)}, testBeam("b1", 0))

	cfg := defaultTestConfig()
	cfg.Toggles = model.Toggles{Zones: false, Sleeves: true, Report: false}
	res, err := New(cfg, nil).Run(ctx, host, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Summary.Zones)
	assert.Nil(t, res.Tables)

	zones, err := host.Zones(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, zones)
	_, err = host.Report(ctx, "Sleeve Violations - Pipes")
	assert.ErrorIs(t, err, hostmodel.ErrNotFound)

	// The violation is still recorded on the run.
	last, err := host.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, last.ViolationCount())
}

func TestRun_SleeveToggleOff(t *testing.T) {
	ctx := context.Background()
	host := newTestHost(t, []model.Conduit{crossing("p1", 1000, 300, 100)}, testBeam("b1", 0))

	cfg := defaultTestConfig()
	cfg.Toggles.Sleeves = false
	res, err := New(cfg, nil).Run(ctx, host, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Summary.Placed)

	sleeves, err := host.Sleeves(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, sleeves)
	zones, err := host.Zones(ctx, "")
	require.NoError(t, err)
	assert.Len(t, zones, 2)
}

func TestRun_ClearPreviousAnnotations(t *testing.T) {
	ctx := context.Background()
	host := newTestHost(t, []model.Conduit{crossing("p1", 1000, 300, 800)}, testBeam("b1", 0))
	require.NoError(t, host.Mutate(ctx, func(m hostmodel.Mutation) error {
		return m.Annotate("stale", "old message")
	}))

	cfg := defaultTestConfig()
	cfg.ClearPreviousAnnotations = true
	_, err := New(cfg, nil).Run(ctx, host, nil)
	require.NoError(t, err)

	notes, err := host.Annotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"p1": "Sleeve diameter exceeds maximum size"}, notes)
}

func TestRun_RepeatedRunsAccumulateZones(t *testing.T) {
	ctx := context.Background()
	host := newTestHost(t, []model.Conduit{crossing("p1", 1000, 300, 100)}, testBeam("b1", 0))
	eng := New(defaultTestConfig(), nil)

	first, err := eng.Run(ctx, host, nil)
	require.NoError(t, err)
	second, err := eng.Run(ctx, host, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Summary.Violations, second.Summary.Violations)

	zones, err := host.Zones(ctx, "")
	require.NoError(t, err)
	assert.Len(t, zones, 4, "zones from earlier runs are not deduplicated")

	runs, err := host.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

// failingHost fails the mutation after fn has written, to check nothing
// leaks out of a failed commit.
type failingHost struct {
	*hostmodel.Store
}

func (f failingHost) Mutate(ctx context.Context, fn func(hostmodel.Mutation) error) error {
	return f.Store.Mutate(ctx, func(m hostmodel.Mutation) error {
		if err := fn(m); err != nil {
			return err
		}
		return errors.New("disk full")
	})
}

func TestCommit_FailedMutationLeavesNoPartialPlacements(t *testing.T) {
	ctx := context.Background()
	store := newTestHost(t, []model.Conduit{crossing("p1", 1000, 300, 100)}, testBeam("b1", 0))

	_, err := New(defaultTestConfig(), nil).Run(ctx, failingHost{store}, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConfigurationFatal))

	sleeves, err := store.Sleeves(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, sleeves)
	zones, err := store.Zones(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestCommit_FailedMutationKeepsDiagnosticsClean(t *testing.T) {
	ctx := context.Background()
	store := newTestHost(t, []model.Conduit{crossing("p1", 100, 300, 100)}, testBeam("b1", 0))
	obstacles, err := store.Obstacles(ctx)
	require.NoError(t, err)
	conduits, err := store.Conduits(ctx)
	require.NoError(t, err)

	e := New(defaultTestConfig(), nil)
	plan, err := e.Plan(ctx, conduits, obstacles, nil)
	require.NoError(t, err)
	require.Len(t, plan.Accepted, 1)

	_, err = e.Commit(ctx, failingHost{store}, "run1", plan)
	require.Error(t, err)
	assert.False(t, plan.Diagnostics.Has("p1", model.OutOfPermissibleRange))
	assert.Zero(t, plan.Diagnostics.Len())

	res, err := e.Commit(ctx, store, "run2", plan)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Rejected[model.OutOfPermissibleRange])
	assert.True(t, plan.Diagnostics.Has("p1", model.OutOfPermissibleRange))
}
