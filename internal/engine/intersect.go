package engine

import (
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/piwi3910/SleevePlan/internal/geom"
	"github.com/piwi3910/SleevePlan/internal/model"
)

// FindIntersections returns the points where the conduit axis enters and
// leaves the obstacle, ordered along the conduit. The record is empty when
// the axis misses the obstacle or the crossing count is odd.
func FindIntersections(c model.Conduit, ob model.Obstacle) model.IntersectionRecord {
	rec := model.IntersectionRecord{ConduitID: c.ID, ObstacleID: ob.ID}
	if len(c.Path) < 2 || len(ob.Solids) == 0 {
		return rec
	}

	cMin, cMax := c.Bounds()
	oMin, oMax := ob.Bounds()
	if !geom.BoundsOverlap(cMin, cMax, oMin, oMax, geom.GrazeTolerance) {
		return rec
	}

	segs := geom.ClipPolyline(c.Path, ob.Solids)
	if len(segs) == 0 {
		return rec
	}

	type hit struct {
		p v3.Vec
		t float64
	}
	hits := make([]hit, 0, 2*len(segs))
	for _, s := range segs {
		hits = append(hits,
			hit{p: s.Start, t: geom.ProjectParam(c.Path, s.Start)},
			hit{p: s.End, t: geom.ProjectParam(c.Path, s.End)},
		)
	}
	if len(hits)%2 != 0 {
		return rec
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].t < hits[j].t })

	for _, h := range hits {
		rec.Points = append(rec.Points, h.p)
		rec.Params = append(rec.Params, h.t)
	}
	return rec
}
