package geom

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// ZoneShape is the solid form of a permissible zone. The profile lives in
// face-frame coordinates. Solid is the thin extrusion placed in model space
// and Reach, when the zone has one, is the profile carried through the
// obstacle depth behind the face.
type ZoneShape struct {
	Zone    model.PermissibleZone
	Profile sdf.SDF2
	Solid   sdf.SDF3
	Reach   sdf.SDF3
}

// NewZoneShape extrudes a zone profile into the obstacle by the zone
// thickness, starting at the face plane.
func NewZoneShape(z model.PermissibleZone) (*ZoneShape, error) {
	if len(z.Profile) < 3 {
		return nil, fmt.Errorf("zone %s: profile has %d vertices", z.ID, len(z.Profile))
	}
	if z.Thickness <= 0 {
		return nil, fmt.Errorf("zone %s: thickness must be positive", z.ID)
	}
	profile, err := sdf.Polygon2D(z.Profile)
	if err != nil {
		return nil, fmt.Errorf("zone %s profile: %w", z.ID, err)
	}

	zs := &ZoneShape{
		Zone:    z,
		Profile: profile,
		Solid:   behindFace(z, profile, z.Thickness),
	}
	if z.Reach > 0 {
		zs.Reach = behindFace(z, profile, z.Reach)
	}
	return zs, nil
}

// behindFace extrudes profile to depth and places it in the zone frame.
// Extrude3D centres the slab on z=0; it is shifted to [-depth, 0] so the
// slab sits just behind the face.
func behindFace(z model.PermissibleZone, profile sdf.SDF2, depth float64) sdf.SDF3 {
	local := sdf.Extrude3D(profile, depth)
	m := frameMatrix(z).Mul(sdf.Translate3d(v3.Vec{X: 0, Y: 0, Z: -depth / 2}))
	return sdf.Transform3D(local, m)
}

// frameMatrix maps local (u, v, depth) coordinates onto the zone's face frame.
func frameMatrix(z model.PermissibleZone) sdf.M44 {
	zAxis := v3.Vec{X: 0, Y: 0, Z: 1}
	xAxis := v3.Vec{X: 1, Y: 0, Z: 0}

	toNormal := sdf.RotateToVector(zAxis, z.Normal)
	x1 := toNormal.MulPosition(xAxis)

	var spin sdf.M44
	switch d := x1.Dot(z.U); {
	case d > 1-1e-9:
		spin = sdf.Identity3d()
	case d < -1+1e-9:
		spin = sdf.Rotate3d(z.Normal, math.Pi)
	default:
		spin = sdf.RotateToVector(x1, z.U)
	}
	return sdf.Translate3d(z.Origin).Mul(spin).Mul(toNormal)
}

// Contains is an approximate containment predicate: p is contained when it
// lies within tol of the zone slab or of its reach through the obstacle.
func (zs *ZoneShape) Contains(p v3.Vec, tol float64) bool {
	if zs.Solid.Evaluate(p) <= tol {
		return true
	}
	return zs.Reach != nil && zs.Reach.Evaluate(p) <= tol
}

// AnyContains reports whether p lies in at least one of the shapes.
func AnyContains(shapes []*ZoneShape, p v3.Vec, tol float64) bool {
	for _, zs := range shapes {
		if zs.Contains(p, tol) {
			return true
		}
	}
	return false
}
