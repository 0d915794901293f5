// Package report renders run results into files: a violation workbook, a PDF
// summary, QR-coded sleeve tags and a DXF drawing of zones and sleeves.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/SleevePlan/internal/model"
)

var workbookHeader = []interface{}{"Mark", "Conduit", "Violation"}

// ExportWorkbook writes one sheet per report table, plus a Summary sheet
// with the run totals.
func ExportWorkbook(path string, summary model.RunSummary, tables []model.ReportTable) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	const first = "Sheet1"
	if err := f.SetSheetName(first, "Summary"); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, "Summary", summary, bold); err != nil {
		return err
	}

	for _, t := range tables {
		name := sheetName(t.Name)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := f.SetSheetRow(name, "A1", &workbookHeader); err != nil {
			return fmt.Errorf("write header of %q: %w", name, err)
		}
		if err := f.SetCellStyle(name, "A1", "C1", bold); err != nil {
			return fmt.Errorf("style header of %q: %w", name, err)
		}
		for i, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			values := []interface{}{row.Mark, row.ConduitID, row.Message}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write row %d of %q: %w", i+1, name, err)
			}
		}
		if err := f.SetColWidth(name, "C", "C", 70); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, name string, s model.RunSummary, bold int) error {
	rows := [][]interface{}{
		{"Run", s.RunID},
		{"Obstacles", s.Obstacles},
		{"Conduits", s.Conduits},
		{"Permissible Zones", s.Zones},
		{"Candidates", s.Candidates},
		{"Sleeves Placed", s.Placed},
		{"Conduits With Violations", s.ViolationCount()},
	}
	for _, k := range sortedKinds(s.Rejected) {
		rows = append(rows, []interface{}{k.String(), s.Rejected[k]})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(name, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	return f.SetColWidth(name, "A", "A", 28)
}

// sheetName makes a report name usable as a worksheet name: at most 31
// characters and none of : \ / ? * [ ].
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if name == "" {
		name = "Report"
	}
	return name
}
