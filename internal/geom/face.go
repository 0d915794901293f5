// Package geom provides the solid and curve geometry used by the placement
// engine: face normals and areas, face parametric frames, clipping of conduit
// axes against convex solids, and the sdfx solids of permissible zones.
package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// Epsilon is the length below which vectors are treated as zero.
const Epsilon = 1e-9

// Newell returns the unnormalized normal of a planar polygon. Its length is
// twice the polygon area.
func Newell(f model.Face) v3.Vec {
	var n v3.Vec
	vs := f.Vertices
	for i := range vs {
		a := vs[i]
		b := vs[(i+1)%len(vs)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// Normal returns the unit outward normal of a face, or the zero vector when
// the face is degenerate.
func Normal(f model.Face) v3.Vec {
	if len(f.Vertices) < 3 {
		return v3.Vec{}
	}
	n := Newell(f)
	l := n.Length()
	if l < Epsilon {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}

// Area integrates the face area over a fan triangulation. Triangle areas are
// signed against the face normal so non-convex faces are measured exactly.
func Area(f model.Face) float64 {
	n := Normal(f)
	if n.Length() == 0 {
		return 0
	}
	vs := f.Vertices
	var sum float64
	for i := 1; i+1 < len(vs); i++ {
		e1 := vs[i].Sub(vs[0])
		e2 := vs[i+1].Sub(vs[0])
		sum += e1.Cross(e2).Dot(n) / 2
	}
	return math.Abs(sum)
}

// Centroid returns the vertex average of a face.
func Centroid(f model.Face) v3.Vec {
	var c v3.Vec
	if len(f.Vertices) == 0 {
		return c
	}
	for _, v := range f.Vertices {
		c = c.Add(v)
	}
	return c.MulScalar(1 / float64(len(f.Vertices)))
}

// Plane is an oriented plane; points with a positive signed distance lie
// on the outer side.
type Plane struct {
	Point  v3.Vec
	Normal v3.Vec
}

// Distance returns the signed distance of p from the plane.
func (pl Plane) Distance(p v3.Vec) float64 {
	return p.Sub(pl.Point).Dot(pl.Normal)
}

// Planes returns the bounding planes of a convex solid. Degenerate faces
// are skipped.
func Planes(s model.ConvexSolid) []Plane {
	planes := make([]Plane, 0, len(s.Faces))
	for _, f := range s.Faces {
		n := Normal(f)
		if n.Length() == 0 {
			continue
		}
		planes = append(planes, Plane{Point: Centroid(f), Normal: n})
	}
	return planes
}

// SideFace is a face of an obstacle whose normal is horizontal.
type SideFace struct {
	SolidIndex int
	FaceIndex  int
	Face       model.Face
	Normal     v3.Vec
	Area       float64
}

// SideFaces returns the faces of an obstacle that are perpendicular to its
// vertical axis. Degenerate faces are skipped.
func SideFaces(ob model.Obstacle) []SideFace {
	up := ob.UpAxis()
	var faces []SideFace
	for si, s := range ob.Solids {
		for fi, f := range s.Faces {
			n := Normal(f)
			if n.Length() == 0 || math.Abs(n.Dot(up)) > 1e-6 {
				continue
			}
			area := Area(f)
			if area < Epsilon {
				continue
			}
			faces = append(faces, SideFace{
				SolidIndex: si,
				FaceIndex:  fi,
				Face:       f,
				Normal:     n,
				Area:       area,
			})
		}
	}
	return faces
}

// Frame is an orthonormal frame lying in a face: U runs horizontally along
// the face, V runs up it and N points out of the solid. U x V = N.
type Frame struct {
	Origin v3.Vec
	U      v3.Vec
	V      v3.Vec
	N      v3.Vec
}

// FaceFrame builds the parametric frame of a side face.
func FaceFrame(f model.Face, normal, up v3.Vec) Frame {
	u := up.Cross(normal)
	if u.Length() < Epsilon {
		// Not a side face; fall back to the first edge.
		u = f.Vertices[1].Sub(f.Vertices[0])
	}
	u = u.MulScalar(1 / u.Length())
	v := normal.Cross(u)
	return Frame{Origin: f.Vertices[0], U: u, V: v, N: normal}
}

// Project returns the frame coordinates of p.
func (fr Frame) Project(p v3.Vec) (u, v, depth float64) {
	d := p.Sub(fr.Origin)
	return d.Dot(fr.U), d.Dot(fr.V), d.Dot(fr.N)
}

// ParamBounds returns the 2-D bounding box of a face in frame coordinates.
func ParamBounds(f model.Face, fr Frame) (uMin, vMin, uMax, vMax float64) {
	uMin, vMin = math.Inf(1), math.Inf(1)
	uMax, vMax = math.Inf(-1), math.Inf(-1)
	for _, p := range f.Vertices {
		u, v, _ := fr.Project(p)
		uMin, uMax = math.Min(uMin, u), math.Max(uMax, u)
		vMin, vMax = math.Min(vMin, v), math.Max(vMax, v)
	}
	return uMin, vMin, uMax, vMax
}

// DepthBehind returns how far a convex solid extends behind the plane of
// one of its faces, measured against the outward normal.
func DepthBehind(s model.ConvexSolid, fr Frame) float64 {
	var depth float64
	for _, f := range s.Faces {
		for _, p := range f.Vertices {
			_, _, d := fr.Project(p)
			depth = math.Max(depth, -d)
		}
	}
	return depth
}

// RotationTo returns the axis-angle rotation carrying unit vector from onto
// unit vector to.
func RotationTo(from, to v3.Vec) (axis v3.Vec, angle float64) {
	c := from.Cross(to)
	dot := math.Max(-1, math.Min(1, from.Dot(to)))
	angle = math.Acos(dot)
	if c.Length() > Epsilon {
		return c.MulScalar(1 / c.Length()), angle
	}
	if dot > 0 {
		return v3.Vec{X: 0, Y: 0, Z: 1}, 0
	}
	// Opposite vectors: any axis perpendicular to from.
	perp := from.Cross(v3.Vec{X: 1, Y: 0, Z: 0})
	if perp.Length() < Epsilon {
		perp = from.Cross(v3.Vec{X: 0, Y: 1, Z: 0})
	}
	return perp.MulScalar(1 / perp.Length()), math.Pi
}

// BoundsOverlap reports whether two axis-aligned boxes overlap after growing
// both by pad.
func BoundsOverlap(aMin, aMax, bMin, bMax v3.Vec, pad float64) bool {
	return aMin.X-pad <= bMax.X && bMin.X-pad <= aMax.X &&
		aMin.Y-pad <= bMax.Y && bMin.Y-pad <= aMax.Y &&
		aMin.Z-pad <= bMax.Z && bMin.Z-pad <= aMax.Z
}
