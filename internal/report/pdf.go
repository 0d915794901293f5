package report

import (
	"fmt"
	"sort"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// Page layout (A4 portrait, mm).
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	rowHeight    = 6.0
)

var tableColWidths = []float64{15, 35, 130}

// ExportPDF writes a run summary followed by one violation table per
// report.
func ExportPDF(path string, summary model.RunSummary, tables []model.ReportTable, cfg model.RunConfig) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AddPage()

	y := renderSummary(pdf, summary, cfg)
	for _, t := range tables {
		y = renderTable(pdf, t, y+8)
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by SleevePlan - Sleeve Placement Engine", "", 0, "C", false, 0, "")

	return pdf.OutputFileAndClose(path)
}

func renderSummary(pdf *fpdf.Fpdf, s model.RunSummary, cfg model.RunConfig) float64 {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Sleeve Placement Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18
	items := []struct {
		label string
		value string
	}{
		{"Run", s.RunID},
		{"Obstacles", fmt.Sprintf("%d", s.Obstacles)},
		{"Conduits", fmt.Sprintf("%d", s.Conduits)},
		{"Permissible Zones", fmt.Sprintf("%d", s.Zones)},
		{"Candidates", fmt.Sprintf("%d", s.Candidates)},
		{"Sleeves Placed", fmt.Sprintf("%d", s.Placed)},
		{"Conduits With Violations", fmt.Sprintf("%d", s.ViolationCount())},
	}
	for _, k := range sortedKinds(s.Rejected) {
		items = append(items, struct {
			label string
			value string
		}{k.String(), fmt.Sprintf("%d", s.Rejected[k])})
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 4
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Parameters", "", 0, "L", false, 0, "")
	y += 9

	params := []struct {
		label string
		value string
	}{
		{"Max Diameter", fmt.Sprintf("%.0f mm", cfg.AbsoluteMaxDiameter)},
		{"Height Ratio", fmt.Sprintf("%.3f", cfg.HeightRatioMax)},
		{"Spacing Factor", fmt.Sprintf("%.3f", cfg.ProximityMultiplier)},
		{"Clearance", fmt.Sprintf("%.0f mm", cfg.Clearance)},
		{"Tie-break", string(cfg.TieBreak)},
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, item := range params {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}
	return y
}

// renderTable draws one report table starting at y and returns the y below
// it. Rows continue on a new page when the current one is full.
func renderTable(pdf *fpdf.Fpdf, t model.ReportTable, y float64) float64 {
	if y+3*rowHeight > pageHeight-marginBottom-5 {
		pdf.AddPage()
		y = marginTop
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(150, 7, fmt.Sprintf("%s (%d)", t.Name, len(t.Rows)), "", 0, "L", false, 0, "")
	y += 9

	if len(t.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(100, 5, "No violations", "", 0, "L", false, 0, "")
		return y + 5
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		x := marginLeft
		for i, h := range []string{"Mark", "Conduit", "Violation"} {
			pdf.SetXY(x, y)
			pdf.CellFormat(tableColWidths[i], rowHeight, h, "1", 0, "C", true, 0, "")
			x += tableColWidths[i]
		}
		y += rowHeight
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	for i, row := range t.Rows {
		if y+rowHeight > pageHeight-marginBottom-5 {
			pdf.AddPage()
			y = marginTop
			header()
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		cells := []string{fmt.Sprintf("%d", row.Mark), row.ConduitID, truncate(pdf, row.Message, tableColWidths[2]-2)}
		aligns := []string{"C", "L", "L"}
		x := marginLeft
		for j, cell := range cells {
			pdf.SetXY(x, y)
			pdf.CellFormat(tableColWidths[j], rowHeight, cell, "1", 0, aligns[j], true, 0, "")
			x += tableColWidths[j]
		}
		y += rowHeight
	}
	return y
}

func sortedKinds(m map[model.ViolationKind]int) []model.ViolationKind {
	kinds := make([]model.ViolationKind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
