package hostmodel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/SleevePlan/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "model.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testObstacle(id, name string) model.Obstacle {
	ob := model.NewObstacle(name, model.BoxSolid(v3.Vec{}, v3.Vec{X: 1000, Y: 300, Z: 600}))
	ob.ID = id
	return ob
}

func TestObstacles_RoundTripInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutObstacles(ctx, testObstacle("b2", "Second"), testObstacle("b1", "First")))

	obs, err := s.Obstacles(ctx)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "b2", obs[0].ID)
	assert.Equal(t, "b1", obs[1].ID)
	assert.Equal(t, testObstacle("b2", "Second"), obs[0])
	assert.InDelta(t, 600.0, obs[1].Height(), 1e-9)
}

func TestObstacles_CacheFollowsRevision(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutObstacles(ctx, testObstacle("b1", "Before")))
	obs, err := s.Obstacles(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Before", obs[0].Name)
	assert.Equal(t, 1, s.cache.Len())

	require.NoError(t, s.PutObstacles(ctx, testObstacle("b1", "After")))
	obs, err = s.Obstacles(ctx)
	require.NoError(t, err)
	require.Len(t, obs, 1, "replacing keeps a single obstacle")
	assert.Equal(t, "After", obs[0].Name)
}

func TestConduits_MissingDiameterReadsZero(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	c := model.Conduit{ID: "p1", Category: model.CategoryDuct, Diameter: 200,
		Path: []v3.Vec{{X: 0, Y: -100, Z: 300}, {X: 0, Y: 400, Z: 300}}}
	require.NoError(t, s.PutConduits(ctx, c))
	_, err := s.db.Exec(`INSERT INTO conduits (id, category, path) VALUES ('p2', 'pipe', '[]')`)
	require.NoError(t, err)

	got, err := s.Conduits(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, c, got[0])
	assert.Zero(t, got[1].Diameter)
	assert.Equal(t, model.CategoryPipe, got[1].Category)
}

func TestSleeveTemplate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.PutTemplates(ctx, model.SleeveTemplate{Name: "Round Sleeve", Family: "Sleeves"}))

	tmpl, err := s.SleeveTemplate(ctx, "Round Sleeve")
	require.NoError(t, err)
	assert.Equal(t, "Sleeves", tmpl.Family)

	_, err = s.SleeveTemplate(ctx, "Square Sleeve")
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestMutate_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	boom := errors.New("boom")
	err := s.Mutate(ctx, func(m Mutation) error {
		require.NoError(t, m.PlaceSleeve(model.PlacedSleeve{ID: "s1", RunID: "r1", ConduitID: "p1"}))
		require.NoError(t, m.AddZone("r1", model.PermissibleZone{ID: "z1", ObstacleID: "b1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sleeves, err := s.Sleeves(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, sleeves)
	zones, err := s.Zones(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestMutate_SleevesAndZones(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.Mutate(ctx, func(m Mutation) error {
		require.NoError(t, m.PlaceSleeve(model.PlacedSleeve{ID: "s1", RunID: "r1", ConduitID: "p1", Diameter: 150}))
		require.NoError(t, m.PlaceSleeve(model.PlacedSleeve{ID: "s2", RunID: "r2", ConduitID: "p2"}))
		require.NoError(t, m.MarkSleeve("s1", true))
		require.NoError(t, m.AddZone("r1", model.PermissibleZone{ID: "z1", ObstacleID: "b1"}))
		require.NoError(t, m.AddZone("r2", model.PermissibleZone{ID: "z2", ObstacleID: "b1"}))
		return nil
	})
	require.NoError(t, err)

	r1, err := s.Sleeves(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, r1, 1)
	assert.True(t, r1[0].InZone)
	assert.InDelta(t, 150.0, r1[0].Diameter, 1e-9)

	err = s.Mutate(ctx, func(m Mutation) error {
		n, err := m.DeleteSleeves("r1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = m.DeleteZones("r2")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)

	all, err := s.Sleeves(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "s2", all[0].ID)

	zones, err := s.Zones(ctx, "")
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "z1", zones[0].ID)
}

func TestMutate_FilterCreatedOnceAndReused(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	style := model.DefaultZoneStyle()

	var first, second string
	require.NoError(t, s.Mutate(ctx, func(m Mutation) error {
		var err error
		first, err = m.EnsureFilter("Permissible Zones", style)
		require.NoError(t, err)
		return m.ApplyFilter("Coordination 3D", first)
	}))
	require.NoError(t, s.Mutate(ctx, func(m Mutation) error {
		var err error
		second, err = m.EnsureFilter("Permissible Zones", model.ZoneStyle{Color: "#000000"})
		require.NoError(t, err)
		return m.ApplyFilter("Coordination 3D", second)
	}))
	assert.Equal(t, first, second)

	id, got, err := s.Filter(ctx, "Permissible Zones")
	require.NoError(t, err)
	assert.Equal(t, first, id)
	assert.Equal(t, style, got, "an existing filter keeps its style")

	views, err := s.ViewFilters(ctx, "Coordination 3D")
	require.NoError(t, err)
	assert.Equal(t, []string{"Permissible Zones"}, views)

	_, _, err = s.Filter(ctx, "Other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMutate_ReportsAreReplacedByName(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	old := model.ReportTable{Name: "Sleeve Violations - Pipes", Category: model.CategoryPipe, Rows: []model.ReportRow{
		{Mark: 1, ConduitID: "p1", Message: "a"},
		{Mark: 2, ConduitID: "p2", Message: "b"},
	}}
	replacement := model.ReportTable{Name: old.Name, Category: model.CategoryPipe, Rows: []model.ReportRow{
		{Mark: 1, ConduitID: "p3", Message: "c"},
	}}
	require.NoError(t, s.Mutate(ctx, func(m Mutation) error { return m.ReplaceReport(old) }))
	require.NoError(t, s.Mutate(ctx, func(m Mutation) error { return m.ReplaceReport(replacement) }))

	got, err := s.Report(ctx, old.Name)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	require.NoError(t, s.Mutate(ctx, func(m Mutation) error { return m.DeleteReport(old.Name) }))
	_, err = s.Report(ctx, old.Name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMutate_Annotations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Mutate(ctx, func(m Mutation) error {
		require.NoError(t, m.Annotate("p1", "first"))
		require.NoError(t, m.Annotate("p1", "second"))
		return m.Annotate("p2", "other")
	}))
	notes, err := s.Annotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"p1": "second", "p2": "other"}, notes)

	require.NoError(t, s.Mutate(ctx, func(m Mutation) error {
		n, err := m.ClearAnnotations()
		assert.Equal(t, 2, n)
		return err
	}))
	notes, err = s.Annotations(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.LastRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first := model.RunSummary{RunID: "r1", Placed: 3, Rejected: map[model.ViolationKind]int{model.SizeExceeded: 1}}
	second := model.RunSummary{RunID: "r2", Placed: 1, Violations: []model.ConduitViolations{
		{ConduitID: "p1", Category: model.CategoryPipe, Kinds: []model.ViolationKind{model.ProximityViolation}},
	}}
	require.NoError(t, s.Mutate(ctx, func(m Mutation) error { return m.RecordRun(first) }))
	require.NoError(t, s.Mutate(ctx, func(m Mutation) error { return m.RecordRun(second) }))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0])

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, last)
}
