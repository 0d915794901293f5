package geom

import (
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// GrazeTolerance is the shortest inside run, in mm of arc length, counted as
// a real crossing. Shorter runs touch the solid without entering it.
const GrazeTolerance = 1e-6

// Segment is a piece of a curve lying inside a solid.
type Segment struct {
	Start v3.Vec
	End   v3.Vec
}

// interval is a range of curve arc length.
type interval struct {
	t0, t1 float64
}

// Length returns the arc length of a polyline.
func Length(path []v3.Vec) float64 {
	var l float64
	for i := 1; i < len(path); i++ {
		l += path[i].Sub(path[i-1]).Length()
	}
	return l
}

// PointAt returns the point at arc length t along the polyline, clamped to
// its ends.
func PointAt(path []v3.Vec, t float64) v3.Vec {
	if len(path) == 0 {
		return v3.Vec{}
	}
	if t <= 0 {
		return path[0]
	}
	var acc float64
	for i := 1; i < len(path); i++ {
		d := path[i].Sub(path[i-1])
		l := d.Length()
		if acc+l >= t && l > 0 {
			return path[i-1].Add(d.MulScalar((t - acc) / l))
		}
		acc += l
	}
	return path[len(path)-1]
}

// ProjectParam returns the arc-length parameter of the point on the
// polyline closest to p.
func ProjectParam(path []v3.Vec, p v3.Vec) float64 {
	if len(path) < 2 {
		return 0
	}
	best := math.Inf(1)
	var bestT, acc float64
	for i := 1; i < len(path); i++ {
		a := path[i-1]
		d := path[i].Sub(a)
		l := d.Length()
		var s float64
		if l > 0 {
			s = math.Max(0, math.Min(l, p.Sub(a).Dot(d)/l))
		}
		var q v3.Vec
		if l > 0 {
			q = a.Add(d.MulScalar(s / l))
		} else {
			q = a
		}
		if dist := p.Sub(q).Length(); dist < best {
			best = dist
			bestT = acc + s
		}
		acc += l
	}
	return bestT
}

// boundaryTolerance is the distance from a face plane within which a point
// counts as on the face.
const boundaryTolerance = 1e-6

// seamStep is how far either side of a face a boundary piece is sampled to
// tell an internal seam from the outer surface.
const seamStep = 1e-3

// clipSegment clips the segment a-b against the closed inside of a convex
// solid given by its planes. It returns the inside range as fractions of
// the segment. A segment running within a face plane counts as inside;
// onFace reports that case so the caller can check it against the union.
func clipSegment(a, b v3.Vec, planes []Plane) (f0, f1 float64, onFace, ok bool) {
	if len(planes) == 0 {
		return 0, 0, false, false
	}
	d := b.Sub(a)
	f0, f1 = 0, 1
	for _, pl := range planes {
		s := pl.Distance(a)
		denom := d.Dot(pl.Normal)
		if math.Abs(denom) < Epsilon {
			if s > boundaryTolerance {
				return 0, 0, false, false
			}
			if s > -boundaryTolerance {
				onFace = true
			}
			continue
		}
		t := -s / denom
		if denom < 0 {
			f0 = math.Max(f0, t)
		} else {
			f1 = math.Min(f1, t)
		}
		if f0 > f1 {
			return 0, 0, false, false
		}
	}
	return f0, f1, onFace, true
}

// insideAny reports whether p lies in the closed inside of any solid.
func insideAny(p v3.Vec, planeSets [][]Plane) bool {
	for _, planes := range planeSets {
		in := len(planes) > 0
		for _, pl := range planes {
			if pl.Distance(p) > boundaryTolerance {
				in = false
				break
			}
		}
		if in {
			return true
		}
	}
	return false
}

// interiorOfUnion reports whether p, lying on a face of some constituent,
// is inside the union rather than on its outer surface. Every face plane
// through p is stepped across in both directions; an internal seam has
// material on both sides.
func interiorOfUnion(p v3.Vec, planeSets [][]Plane) bool {
	touched := false
	for _, planes := range planeSets {
		for _, pl := range planes {
			if math.Abs(pl.Distance(p)) > boundaryTolerance {
				continue
			}
			touched = true
			for _, sign := range []float64{1, -1} {
				if !insideAny(p.Add(pl.Normal.MulScalar(sign*seamStep)), planeSets) {
					return false
				}
			}
		}
	}
	return touched
}

// ClipPolyline intersects a polyline with the union of convex solids and
// returns the pieces of the curve that lie inside, in curve order. Pieces
// from overlapping or abutting constituents are merged. Pieces running on
// the outer surface and grazing contacts are dropped.
func ClipPolyline(path []v3.Vec, solids []model.ConvexSolid) []Segment {
	planeSets := make([][]Plane, len(solids))
	for i, s := range solids {
		planeSets[i] = Planes(s)
	}

	var spans []interval
	var acc float64
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		l := b.Sub(a).Length()
		if l < Epsilon {
			continue
		}
		for _, planes := range planeSets {
			f0, f1, onFace, ok := clipSegment(a, b, planes)
			if !ok {
				continue
			}
			if onFace {
				mid := a.Add(b.Sub(a).MulScalar((f0 + f1) / 2))
				if !interiorOfUnion(mid, planeSets) {
					continue
				}
			}
			spans = append(spans, interval{t0: acc + f0*l, t1: acc + f1*l})
		}
		acc += l
	}

	merged := mergeIntervals(spans)
	segs := make([]Segment, 0, len(merged))
	for _, iv := range merged {
		segs = append(segs, Segment{Start: PointAt(path, iv.t0), End: PointAt(path, iv.t1)})
	}
	return segs
}

// mergeIntervals unions overlapping or touching intervals and drops those
// shorter than GrazeTolerance.
func mergeIntervals(spans []interval) []interval {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].t0 < spans[j].t0 })
	var out []interval
	cur := spans[0]
	for _, s := range spans[1:] {
		if s.t0 <= cur.t1+GrazeTolerance {
			cur.t1 = math.Max(cur.t1, s.t1)
			continue
		}
		out = append(out, cur)
		cur = s
	}
	out = append(out, cur)

	kept := out[:0]
	for _, iv := range out {
		if iv.t1-iv.t0 >= GrazeTolerance {
			kept = append(kept, iv)
		}
	}
	return kept
}
