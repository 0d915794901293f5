package engine

import (
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/SleevePlan/internal/model"
)

func TestZoneBuilder_BeamKeepsLongFaces(t *testing.T) {
	b := NewZoneBuilder(defaultTestConfig())
	zones := b.Build(testBeam("b1", 0))

	require.Len(t, zones, 2, "the two end caps tie for the smallest area and are both dropped")
	for _, z := range zones {
		assert.Equal(t, "b1", z.ObstacleID)
		assert.InDelta(t, 0.0, z.Normal.Z, 1e-9)
		assert.InDelta(t, 1.0, abs(z.Normal.Y), 1e-9, "only the long faces remain")
		assert.InDelta(t, 10.0, z.Thickness, 1e-9)
		assert.InDelta(t, 300.0, z.Reach, 1e-9)

		du, dv := z.Extent()
		assert.InDelta(t, 2000-2*300, du, 1e-9, "width margin is height x 0.5 at each end")
		assert.InDelta(t, 600-2*150, dv, 1e-9, "height margin is height x 0.25 at each end")
	}
}

func TestZoneBuilder_FrontFaceProfile(t *testing.T) {
	b := NewZoneBuilder(defaultTestConfig())
	zones := b.Build(testBeam("b1", 0))

	var front *model.PermissibleZone
	for i := range zones {
		if zones[i].Normal.Y < 0 {
			front = &zones[i]
		}
	}
	require.NotNil(t, front)
	assert.Equal(t, []v2.Vec{{X: 300, Y: 150}, {X: 1700, Y: 150}, {X: 1700, Y: 450}, {X: 300, Y: 450}}, front.Profile)

	corners := front.Corners()
	assertVec(t, vec(300, 0, 150), corners[0])
	assertVec(t, vec(1700, 0, 450), corners[2])
}

func TestZoneBuilder_SquareColumnHasNoZones(t *testing.T) {
	// All four side faces share the minimum area.
	col := model.NewObstacle("C1", model.BoxSolid(vec(0, 0, 0), vec(400, 400, 3000)))
	assert.Empty(t, NewZoneBuilder(defaultTestConfig()).Build(col))
}

func TestZoneBuilder_UnionDropsOnlySmallestFaces(t *testing.T) {
	// Beam faces: 2 x 1200000 and 2 x 180000. Stub faces: 2 x 60000 facing
	// -Y/+Y (the minimum) and 2 x 300000 facing -X/+X.
	ob := model.NewObstacle("B",
		model.BoxSolid(vec(0, 0, 0), vec(2000, 300, 600)),
		model.BoxSolid(vec(2000, 0, 0), vec(2100, 500, 600)),
	)
	zones := NewZoneBuilder(defaultTestConfig()).Build(ob)
	require.Len(t, zones, 6)

	stub := 0
	for _, z := range zones {
		if z.SolidIndex == 1 {
			stub++
			assert.InDelta(t, 1.0, abs(z.Normal.X), 1e-9)
			assert.InDelta(t, 100.0, z.Reach, 1e-9, "reach is measured within the constituent")
		}
	}
	assert.Equal(t, 2, stub)
}

func TestZoneBuilder_MarginHalvedWhenFaceTooNarrow(t *testing.T) {
	// 500 long face with a 300 margin at each end would cross; halving to
	// 150 leaves a 200 wide zone.
	ob := model.NewObstacle("short", model.BoxSolid(vec(0, 0, 0), vec(500, 300, 600)))
	zones := NewZoneBuilder(defaultTestConfig()).Build(ob)
	require.Len(t, zones, 2)
	du, dv := zones[0].Extent()
	assert.InDelta(t, 200.0, du, 1e-9)
	assert.InDelta(t, 300.0, dv, 1e-9)
}

func TestZoneBuilder_Degenerate(t *testing.T) {
	b := NewZoneBuilder(defaultTestConfig())
	assert.Empty(t, b.Build(model.Obstacle{ID: "empty"}))

	// Profile edges below the curve tolerance leave fewer than three edges.
	b.CurveTolerance = 5000
	assert.Empty(t, b.Build(testBeam("b1", 0)))
}

func TestInsetRange(t *testing.T) {
	lo, hi, ok := insetRange(0, 1000, 300)
	require.True(t, ok)
	assert.Equal(t, 300.0, lo)
	assert.Equal(t, 700.0, hi)

	lo, hi, ok = insetRange(0, 500, 300)
	require.True(t, ok)
	assert.Equal(t, 150.0, lo)
	assert.Equal(t, 350.0, hi)

	lo, hi, ok = insetRange(0, 100, 0)
	require.True(t, ok)
	assert.Less(t, lo, hi)

	_, _, ok = insetRange(5, 5, 1)
	assert.False(t, ok)
}

func TestClosedProfile(t *testing.T) {
	square := []v2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	assert.Len(t, closedProfile(square, 1), 4)

	sliver := []v2.Vec{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 0.5, Y: 10}, {X: 0, Y: 10}}
	assert.Len(t, closedProfile(sliver, 1), 2, "two short edges leave two valid edges")
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
