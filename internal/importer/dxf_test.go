package importer

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/yofu/dxf"
)

// writePlanDXF draws a beam rectangle and an L-shaped slab edge as loose
// LINEs, plus a round column.
func writePlanDXF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.dxf")

	d := dxf.NewDrawing()
	lines := [][4]float64{
		// Beam, drawn out of order and partly reversed.
		{0, 0, 3000, 0}, {6000, 300, 6000, 0}, {3000, 0, 6000, 0}, {6000, 300, 0, 300}, {0, 300, 0, 0},
		// L shape.
		{0, 1000, 1000, 1000}, {1000, 1000, 1000, 1500}, {1000, 1500, 500, 1500},
		{500, 1500, 500, 2000}, {500, 2000, 0, 2000}, {0, 2000, 0, 1000},
	}
	for _, l := range lines {
		if _, err := d.Line(l[0], l[1], 0, l[2], l[3], 0); err != nil {
			t.Fatalf("line: %v", err)
		}
	}
	if _, err := d.Circle(8000, 8000, 0, 200); err != nil {
		t.Fatalf("circle: %v", err)
	}
	if err := d.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestImportDXF_MembersFromPlan(t *testing.T) {
	result := ImportDXF(writePlanDXF(t), DXFOptions{Bottom: 2400, Top: 3000})

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Obstacles) != 2 {
		t.Fatalf("expected column and beam, got %d obstacles", len(result.Obstacles))
	}

	col := result.Obstacles[0]
	if got := len(col.Solids[0].Faces); got != 32+2 {
		t.Errorf("expected a 32-sided column prism, got %d faces", got)
	}

	beam := result.Obstacles[1]
	if beam.Name != "DXF Member 2" {
		t.Errorf("unexpected name %q", beam.Name)
	}
	if got := len(beam.Solids[0].Faces); got != 6 {
		t.Errorf("collinear split points should be dropped, got %d faces", got)
	}
	min, max := beam.Bounds()
	if min != (v3.Vec{X: 0, Y: 0, Z: 2400}) || max != (v3.Vec{X: 6000, Y: 300, Z: 3000}) {
		t.Errorf("bounds = %v - %v", min, max)
	}
	if h := beam.Height(); math.Abs(h-600) > 1e-9 {
		t.Errorf("height = %f, want 600", h)
	}

	if !strings.Contains(strings.Join(result.Warnings, "\n"), "non-convex") {
		t.Errorf("expected the L shape to be skipped, warnings: %v", result.Warnings)
	}
}

func TestImportDXF_BadElevations(t *testing.T) {
	result := ImportDXF(writePlanDXF(t), DXFOptions{Bottom: 3000, Top: 3000})
	if len(result.Errors) == 0 {
		t.Error("expected error for zero-height members")
	}
}

func TestImportDXF_FileNotFound(t *testing.T) {
	result := ImportDXF(filepath.Join(t.TempDir(), "missing.dxf"), DXFOptions{Top: 600})
	if len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}
}

func TestChainSegments_OpenChainIgnored(t *testing.T) {
	segs := []segment{
		{start: v2.Vec{X: 0, Y: 0}, end: v2.Vec{X: 10, Y: 0}},
		{start: v2.Vec{X: 10, Y: 0}, end: v2.Vec{X: 10, Y: 10}},
	}
	if got := chainSegments(segs, 0.01); len(got) != 0 {
		t.Errorf("expected no outlines, got %v", got)
	}
}

func TestDropCollinear(t *testing.T) {
	o := []v2.Vec{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	got := dropCollinear(o)
	if len(got) != 4 {
		t.Errorf("expected 4 vertices, got %v", got)
	}
}

func TestBulgeArcPoints_Semicircle(t *testing.T) {
	pts := bulgeArcPoints(v2.Vec{X: 0, Y: 0}, v2.Vec{X: 10, Y: 0}, 1, 8)
	if len(pts) != 9 {
		t.Fatalf("expected 9 points, got %d", len(pts))
	}
	for _, p := range pts {
		if r := math.Hypot(p.X-5, p.Y); math.Abs(r-5) > 1e-9 {
			t.Errorf("point %v is %f from the centre", p, r)
		}
	}
}
