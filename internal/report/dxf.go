package report

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// Layer names used in the exported drawing.
const (
	LayerZones     = "PERMISSIBLE_ZONES"
	LayerSleeves   = "SLEEVES"
	LayerOutOfZone = "SLEEVES_OUT_OF_ZONE"
)

// ExportDXF draws permissible-zone outlines on their face planes and each
// sleeve as its axis plus a plan circle of the sleeve diameter. Sleeves
// outside every zone go on their own layer.
func ExportDXF(path string, zones []model.PermissibleZone, sleeves []model.PlacedSleeve) error {
	if len(zones) == 0 && len(sleeves) == 0 {
		return fmt.Errorf("nothing to draw")
	}

	d := dxf.NewDrawing()
	layers := []struct {
		name string
		cl   color.ColorNumber
	}{
		{LayerZones, color.Green},
		{LayerSleeves, color.Cyan},
		{LayerOutOfZone, color.Red},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.cl, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("add layer %s: %w", l.name, err)
		}
	}

	if err := d.ChangeLayer(LayerZones); err != nil {
		return err
	}
	for _, z := range zones {
		corners := z.Corners()
		for i := range corners {
			a, b := corners[i], corners[(i+1)%len(corners)]
			if _, err := d.Line(a.X, a.Y, a.Z, b.X, b.Y, b.Z); err != nil {
				return fmt.Errorf("zone %s: %w", z.ID, err)
			}
		}
	}

	for _, s := range sleeves {
		layer := LayerSleeves
		if !s.InZone {
			layer = LayerOutOfZone
		}
		if err := d.ChangeLayer(layer); err != nil {
			return err
		}
		half := s.Direction.MulScalar(s.Length / 2)
		a, b := s.Position.Sub(half), s.Position.Add(half)
		if _, err := d.Line(a.X, a.Y, a.Z, b.X, b.Y, b.Z); err != nil {
			return fmt.Errorf("sleeve %s: %w", s.ID, err)
		}
		if _, err := d.Circle(s.Position.X, s.Position.Y, s.Position.Z, s.Diameter/2); err != nil {
			return fmt.Errorf("sleeve %s: %w", s.ID, err)
		}
	}

	return d.SaveAs(path)
}
