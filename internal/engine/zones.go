package engine

import (
	"sort"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"

	"github.com/piwi3910/SleevePlan/internal/geom"
	"github.com/piwi3910/SleevePlan/internal/model"
)

// maxInsetHalvings bounds how often a margin is halved before a face is
// given up as too small.
const maxInsetHalvings = 32

// ZoneBuilder derives permissible zones from obstacle side faces.
type ZoneBuilder struct {
	WidthMarginFraction  float64
	HeightMarginFraction float64
	Thickness            float64
	CurveTolerance       float64
}

func NewZoneBuilder(cfg model.RunConfig) *ZoneBuilder {
	return &ZoneBuilder{
		WidthMarginFraction:  cfg.WidthMarginFraction,
		HeightMarginFraction: cfg.HeightMarginFraction,
		Thickness:            cfg.ZoneThickness,
		CurveTolerance:       cfg.CurveTolerance,
	}
}

// Build returns one zone per retained side face of the obstacle. Side faces
// are sorted by area and every face larger than the smallest is kept, which
// drops the end caps. When several faces share the smallest area all of
// them are dropped. Faces that cannot produce a valid profile are skipped.
func (b *ZoneBuilder) Build(ob model.Obstacle) []model.PermissibleZone {
	faces := geom.SideFaces(ob)
	if len(faces) == 0 {
		return nil
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].Area < faces[j].Area })

	minArea := faces[0].Area
	// Relative tolerance so faces equal to the minimum up to rounding tie.
	threshold := minArea * (1 + 1e-9)

	height := ob.Height()
	up := ob.UpAxis()

	var zones []model.PermissibleZone
	for _, f := range faces {
		if f.Area <= threshold {
			continue
		}
		z, ok := b.buildFace(ob, f, height, up)
		if !ok {
			continue
		}
		zones = append(zones, z)
	}
	return zones
}

func (b *ZoneBuilder) buildFace(ob model.Obstacle, f geom.SideFace, height float64, up v3.Vec) (model.PermissibleZone, bool) {
	fr := geom.FaceFrame(f.Face, f.Normal, up)
	uMin, vMin, uMax, vMax := geom.ParamBounds(f.Face, fr)

	u0, u1, ok := insetRange(uMin, uMax, height*b.WidthMarginFraction)
	if !ok {
		return model.PermissibleZone{}, false
	}
	v0, v1, ok := insetRange(vMin, vMax, height*b.HeightMarginFraction)
	if !ok {
		return model.PermissibleZone{}, false
	}

	profile := closedProfile([]v2.Vec{
		{X: u0, Y: v0}, {X: u1, Y: v0}, {X: u1, Y: v1}, {X: u0, Y: v1},
	}, b.CurveTolerance)
	if len(profile) < 3 {
		return model.PermissibleZone{}, false
	}

	return model.PermissibleZone{
		ID:         uuid.New().String(),
		ObstacleID: ob.ID,
		SolidIndex: f.SolidIndex,
		FaceIndex:  f.FaceIndex,
		Origin:     fr.Origin,
		U:          fr.U,
		V:          fr.V,
		Normal:     fr.N,
		Profile:    profile,
		Thickness:  b.Thickness,
		Reach:      geom.DepthBehind(ob.Solids[f.SolidIndex], fr),
	}, true
}

// insetRange shrinks [lo, hi] by margin at both ends. If the ends would meet
// or cross, the margin is halved and the inset retried.
func insetRange(lo, hi, margin float64) (float64, float64, bool) {
	if hi <= lo {
		return 0, 0, false
	}
	for i := 0; i < maxInsetHalvings; i++ {
		a, b := lo+margin, hi-margin
		if a < b {
			return a, b, true
		}
		margin /= 2
	}
	return 0, 0, false
}

// closedProfile drops every edge of the closed polygon shorter than tol by
// discarding its end vertex. The result keeps one vertex per surviving edge.
func closedProfile(corners []v2.Vec, tol float64) []v2.Vec {
	var out []v2.Vec
	for i, c := range corners {
		next := corners[(i+1)%len(corners)]
		if next.Sub(c).Length() < tol {
			continue
		}
		out = append(out, c)
	}
	return out
}
