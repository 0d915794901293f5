package model

import (
	"errors"
	"fmt"
)

// TieBreak selects which of two equal-diameter conflicting candidates is removed.
type TieBreak string

const (
	TieBreakRemoveLater   TieBreak = "remove-later"   // Drop the candidate that comes later in candidate order
	TieBreakRemoveEarlier TieBreak = "remove-earlier" // Drop the candidate that comes first
)

// Toggles decide which artifacts are kept once a run has produced them.
type Toggles struct {
	Zones   bool `json:"zones" yaml:"zones"`
	Sleeves bool `json:"sleeves" yaml:"sleeves"`
	Report  bool `json:"report" yaml:"report"`
}

// RunConfig holds the parameters of one placement run. It is read once and
// never changed while the run is in progress.
type RunConfig struct {
	// Permissible zone construction
	WidthMarginFraction  float64 `json:"width_margin_fraction" yaml:"width_margin_fraction"`   // Fraction of obstacle height inset along the face length
	HeightMarginFraction float64 `json:"height_margin_fraction" yaml:"height_margin_fraction"` // Fraction of obstacle height inset along the vertical
	ZoneThickness        float64 `json:"zone_thickness" yaml:"zone_thickness"`                 // mm
	CurveTolerance       float64 `json:"curve_tolerance" yaml:"curve_tolerance"`               // Shortest profile edge kept, mm

	// Sizing and spacing constraints
	AbsoluteMaxDiameter float64  `json:"absolute_max_diameter" yaml:"absolute_max_diameter"` // mm
	HeightRatioMax      float64  `json:"height_ratio_max" yaml:"height_ratio_max"`           // Max diameter as fraction of obstacle height
	ProximityMultiplier float64  `json:"proximity_multiplier" yaml:"proximity_multiplier"`   // Spacing factor on combined diameters
	Clearance           float64  `json:"clearance" yaml:"clearance"`                         // Added to the conduit diameter, mm
	TieBreak            TieBreak `json:"tie_break" yaml:"tie_break"`

	// Placement
	ContainmentTolerance float64   `json:"containment_tolerance" yaml:"containment_tolerance"` // mm
	SleeveTemplate       string    `json:"sleeve_template" yaml:"sleeve_template"`
	FilterName           string    `json:"filter_name" yaml:"filter_name"`
	ViewName             string    `json:"view_name" yaml:"view_name"`
	ZoneStyle            ZoneStyle `json:"zone_style" yaml:"zone_style"`

	// Reporting
	PipeReportName           string  `json:"pipe_report_name" yaml:"pipe_report_name"`
	DuctReportName           string  `json:"duct_report_name" yaml:"duct_report_name"`
	ClearPreviousAnnotations bool    `json:"clear_previous_annotations" yaml:"clear_previous_annotations"`
	Toggles                  Toggles `json:"toggles" yaml:"toggles"`

	// Workers limits the per-obstacle worker pool; 0 uses all CPUs.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultRunConfig returns the stock parameters used when no config file exists.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		WidthMarginFraction:      0.5,
		HeightMarginFraction:     0.25,
		ZoneThickness:            10.0,
		CurveTolerance:           0.8,
		AbsoluteMaxDiameter:      750.0,
		HeightRatioMax:           1.0 / 3.0,
		ProximityMultiplier:      0.667,
		Clearance:                50.0,
		TieBreak:                 TieBreakRemoveLater,
		ContainmentTolerance:     1.0,
		SleeveTemplate:           "Round Sleeve",
		FilterName:               "Permissible Zones",
		ViewName:                 "Coordination 3D",
		ZoneStyle:                DefaultZoneStyle(),
		PipeReportName:           "Sleeve Violations - Pipes",
		DuctReportName:           "Sleeve Violations - Ducts",
		ClearPreviousAnnotations: false,
		Toggles:                  Toggles{Zones: true, Sleeves: true, Report: true},
		Workers:                  0,
	}
}

// ReportName returns the configured report name for a conduit category.
func (c RunConfig) ReportName(cat Category) string {
	if cat == CategoryDuct {
		return c.DuctReportName
	}
	return c.PipeReportName
}

// Validate checks that every parameter is usable.
func (c RunConfig) Validate() error {
	var errs []error
	fraction := func(name string, v float64) {
		if v < 0 || v >= 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 1), got %g", name, v))
		}
	}
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", name, v))
		}
	}

	fraction("width_margin_fraction", c.WidthMarginFraction)
	fraction("height_margin_fraction", c.HeightMarginFraction)
	positive("zone_thickness", c.ZoneThickness)
	positive("absolute_max_diameter", c.AbsoluteMaxDiameter)
	positive("height_ratio_max", c.HeightRatioMax)
	if c.ProximityMultiplier < 0 {
		errs = append(errs, fmt.Errorf("proximity_multiplier must not be negative, got %g", c.ProximityMultiplier))
	}
	if c.Clearance < 0 {
		errs = append(errs, fmt.Errorf("clearance must not be negative, got %g", c.Clearance))
	}
	if c.CurveTolerance < 0 || c.ContainmentTolerance < 0 {
		errs = append(errs, errors.New("tolerances must not be negative"))
	}
	switch c.TieBreak {
	case TieBreakRemoveLater, TieBreakRemoveEarlier:
	default:
		errs = append(errs, fmt.Errorf("unknown tie_break %q", c.TieBreak))
	}
	if c.SleeveTemplate == "" {
		errs = append(errs, errors.New("sleeve_template is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	return errors.Join(errs...)
}
