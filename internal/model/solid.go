package model

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// boxFaces returns the six faces of the unit-axis box [x0,x1]x[y0,y1]x[z0,z1]
// with outward winding, mapped through f.
func boxFaces(x0, y0, z0, x1, y1, z1 float64, f func(x, y, z float64) v3.Vec) []Face {
	quad := func(a, b, c, d [3]float64) Face {
		return Face{Vertices: []v3.Vec{
			f(a[0], a[1], a[2]),
			f(b[0], b[1], b[2]),
			f(c[0], c[1], c[2]),
			f(d[0], d[1], d[2]),
		}}
	}
	return []Face{
		quad([3]float64{x0, y0, z0}, [3]float64{x0, y1, z0}, [3]float64{x1, y1, z0}, [3]float64{x1, y0, z0}), // bottom
		quad([3]float64{x0, y0, z1}, [3]float64{x1, y0, z1}, [3]float64{x1, y1, z1}, [3]float64{x0, y1, z1}), // top
		quad([3]float64{x0, y0, z0}, [3]float64{x1, y0, z0}, [3]float64{x1, y0, z1}, [3]float64{x0, y0, z1}), // front (-y)
		quad([3]float64{x0, y1, z0}, [3]float64{x0, y1, z1}, [3]float64{x1, y1, z1}, [3]float64{x1, y1, z0}), // back (+y)
		quad([3]float64{x0, y0, z0}, [3]float64{x0, y0, z1}, [3]float64{x0, y1, z1}, [3]float64{x0, y1, z0}), // left (-x)
		quad([3]float64{x1, y0, z0}, [3]float64{x1, y1, z0}, [3]float64{x1, y1, z1}, [3]float64{x1, y0, z1}), // right (+x)
	}
}

// BoxSolid builds an axis-aligned box between two corners.
func BoxSolid(min, max v3.Vec) ConvexSolid {
	x0, x1 := math.Min(min.X, max.X), math.Max(min.X, max.X)
	y0, y1 := math.Min(min.Y, max.Y), math.Max(min.Y, max.Y)
	z0, z1 := math.Min(min.Z, max.Z), math.Max(min.Z, max.Z)
	return ConvexSolid{Faces: boxFaces(x0, y0, z0, x1, y1, z1, func(x, y, z float64) v3.Vec {
		return v3.Vec{X: x, Y: y, Z: z}
	})}
}

// BeamSolid builds a rectangular beam running from start to end. The beam is
// centred on the line, width is measured horizontally and height along up.
// A zero up vector means +Z.
func BeamSolid(start, end v3.Vec, width, height float64, up v3.Vec) ConvexSolid {
	axis := end.Sub(start)
	length := axis.Length()
	if length < 1e-12 {
		return ConvexSolid{}
	}
	a := axis.MulScalar(1 / length)
	if up.Length() < 1e-12 {
		up = v3.Vec{X: 0, Y: 0, Z: 1}
	}
	w := up.Sub(a.MulScalar(up.Dot(a)))
	if w.Length() < 1e-12 {
		// Vertical member: pick any horizontal reference.
		w = v3.Vec{X: 1, Y: 0, Z: 0}.Sub(a.MulScalar(a.X))
	}
	w = w.MulScalar(1 / w.Length())
	s := w.Cross(a)

	return ConvexSolid{Faces: boxFaces(0, -width/2, -height/2, length, width/2, height/2, func(x, y, z float64) v3.Vec {
		return start.Add(a.MulScalar(x)).Add(s.MulScalar(y)).Add(w.MulScalar(z))
	})}
}

// PrismSolid extrudes a convex plan outline vertically between z0 and z1.
// The outline may be wound either way.
func PrismSolid(outline []v2.Vec, z0, z1 float64) ConvexSolid {
	if len(outline) < 3 {
		return ConvexSolid{}
	}
	if z1 < z0 {
		z0, z1 = z1, z0
	}
	pts := append([]v2.Vec(nil), outline...)
	var area float64
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	at := func(p v2.Vec, z float64) v3.Vec { return v3.Vec{X: p.X, Y: p.Y, Z: z} }
	n := len(pts)
	bottom := make([]v3.Vec, n)
	top := make([]v3.Vec, n)
	for i, p := range pts {
		bottom[n-1-i] = at(p, z0)
		top[i] = at(p, z1)
	}
	faces := []Face{{Vertices: bottom}, {Vertices: top}}
	for i := range pts {
		a, b := pts[i], pts[(i+1)%n]
		faces = append(faces, Face{Vertices: []v3.Vec{at(a, z0), at(b, z0), at(b, z1), at(a, z1)}})
	}
	return ConvexSolid{Faces: faces}
}

// IsConvex reports whether a closed plan outline turns consistently in one
// direction. Collinear vertices are allowed.
func IsConvex(outline []v2.Vec) bool {
	n := len(outline)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		a, b, c := outline[i], outline[(i+1)%n], outline[(i+2)%n]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		switch {
		case cross > 1e-9:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < -1e-9:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}
