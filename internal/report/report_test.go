package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/xuri/excelize/v2"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/SleevePlan/internal/model"
)

func buildTestSummary() model.RunSummary {
	return model.RunSummary{
		RunID:      "a1b2c3d4",
		Obstacles:  2,
		Conduits:   5,
		Zones:      4,
		Candidates: 6,
		Placed:     3,
		Rejected: map[model.ViolationKind]int{
			model.SizeExceeded:       1,
			model.ProximityViolation: 2,
		},
		Violations: []model.ConduitViolations{
			{ConduitID: "d1", Category: model.CategoryDuct, Kinds: []model.ViolationKind{model.SizeExceeded}},
			{ConduitID: "p2", Category: model.CategoryPipe, Kinds: []model.ViolationKind{model.ProximityViolation}},
		},
	}
}

func buildTestTables() []model.ReportTable {
	return []model.ReportTable{
		{Name: "Sleeve Violations - Pipes", Category: model.CategoryPipe, Rows: []model.ReportRow{
			{Mark: 1, ConduitID: "p2", Message: "Sleeve too close to adjacent sleeve"},
			{Mark: 2, ConduitID: "p4", Message: "Sleeve diameter exceeds allowed ratio of beam height, Sleeve outside permissible zone"},
		}},
		{Name: "Sleeve Violations - Ducts", Category: model.CategoryDuct, Rows: []model.ReportRow{
			{Mark: 1, ConduitID: "d1", Message: "Sleeve diameter exceeds maximum size"},
		}},
	}
}

func buildTestSleeves() []model.PlacedSleeve {
	return []model.PlacedSleeve{
		{ID: "s1", RunID: "a1b2c3d4", ConduitID: "p1", ObstacleID: "b1", Position: v3.Vec{X: 1000, Y: 150, Z: 300},
			Direction: v3.Vec{Y: 1}, Length: 300, Diameter: 150, InZone: true},
		{ID: "s2", RunID: "a1b2c3d4", ConduitID: "p3", ObstacleID: "b1", Position: v3.Vec{X: 100, Y: 150, Z: 300},
			Direction: v3.Vec{Y: 1}, Length: 300, Diameter: 100, InZone: false},
	}
}

func buildTestZone() model.PermissibleZone {
	return model.PermissibleZone{
		ID: "z1", ObstacleID: "b1",
		Origin:  v3.Vec{},
		U:       v3.Vec{X: 1},
		V:       v3.Vec{Z: 1},
		Normal:  v3.Vec{Y: -1},
		Profile: []v2.Vec{{X: 300, Y: 150}, {X: 1700, Y: 150}, {X: 1700, Y: 450}, {X: 300, Y: 450}},
	}
}

func TestExportWorkbook_SheetPerTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "violations.xlsx")
	if err := ExportWorkbook(path, buildTestSummary(), buildTestTables()); err != nil {
		t.Fatalf("ExportWorkbook returned error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("cannot reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Summary", "Sleeve Violations - Pipes", "Sleeve Violations - Ducts"}
	if fmt.Sprint(sheets) != fmt.Sprint(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}

	rows, err := f.GetRows("Sleeve Violations - Pipes")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Mark" || rows[2][1] != "p4" {
		t.Errorf("unexpected pipe rows: %v", rows)
	}
	if !strings.Contains(rows[2][2], "outside permissible zone") {
		t.Errorf("message not written: %q", rows[2][2])
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if summary[0][1] != "a1b2c3d4" {
		t.Errorf("run id = %q", summary[0][1])
	}
	if summary[5][0] != "Sleeves Placed" || summary[5][1] != "3" {
		t.Errorf("placed row = %v", summary[5])
	}
}

func TestExportWorkbook_EmptyTableKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	tables := []model.ReportTable{{Name: "Sleeve Violations - Pipes", Category: model.CategoryPipe}}
	if err := ExportWorkbook(path, model.RunSummary{RunID: "r"}, tables); err != nil {
		t.Fatalf("ExportWorkbook returned error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("cannot reopen workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sleeve Violations - Pipes")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected only the header row, got %d rows", len(rows))
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sleeve Violations - Pipes", "Sleeve Violations - Pipes"},
		{"Pipes/Ducts [level 2]", "Pipes_Ducts _level 2_"},
		{"A very long report name that exceeds the limit", "A very long report name that ex"},
		{"", "Report"},
	}
	for _, tt := range tests {
		if got := sheetName(tt.in); got != tt.want {
			t.Errorf("sheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportPDF_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.pdf")
	if err := ExportPDF(path, buildTestSummary(), buildTestTables(), model.DefaultRunConfig()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
	if len(data) < 500 {
		t.Errorf("PDF file seems too small: %d bytes", len(data))
	}
}

func TestExportPDF_ManyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.pdf")
	table := model.ReportTable{Name: "Sleeve Violations - Pipes", Category: model.CategoryPipe}
	for i := 1; i <= 120; i++ {
		table.Rows = append(table.Rows, model.ReportRow{Mark: i, ConduitID: fmt.Sprintf("p%d", i), Message: "Sleeve too close to adjacent sleeve"})
	}
	if err := ExportPDF(path, buildTestSummary(), []model.ReportTable{table}, model.DefaultRunConfig()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("PDF file is empty")
	}
}

func TestExportPDF_NoViolations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.pdf")
	tables := []model.ReportTable{
		{Name: "Sleeve Violations - Pipes", Category: model.CategoryPipe},
		{Name: "Sleeve Violations - Ducts", Category: model.CategoryDuct},
	}
	if err := ExportPDF(path, model.RunSummary{RunID: "r1", Placed: 4}, tables, model.DefaultRunConfig()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
}

func TestExportLabels_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.pdf")
	if err := ExportLabels(path, buildTestSleeves()); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("labels file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("labels file is empty")
	}
}

func TestExportLabels_NoSleeves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.pdf")
	if err := ExportLabels(path, nil); err == nil {
		t.Fatal("expected error for no sleeves, got nil")
	}
}

func TestExportLabels_MultiplePages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "many.pdf")
	var sleeves []model.PlacedSleeve
	for i := 0; i < labelsPerPage+5; i++ {
		sleeves = append(sleeves, model.PlacedSleeve{ID: fmt.Sprintf("s%02d", i), ConduitID: "p", Diameter: 100, Length: 300, InZone: true})
	}
	if err := ExportLabels(path, sleeves); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}
}

func TestCollectLabelInfos(t *testing.T) {
	labels := CollectLabelInfos(buildTestSleeves())
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(labels))
	}

	l := labels[1]
	if l.SleeveID != "s2" || l.ConduitID != "p3" || l.InZone {
		t.Errorf("unexpected label: %+v", l)
	}
	if l.X != 100 || l.Y != 150 || l.Z != 300 {
		t.Errorf("position = (%v, %v, %v)", l.X, l.Y, l.Z)
	}

	data, err := json.Marshal(labels[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"sleeve":"s1"`, `"conduit":"p1"`, `"diameter_mm":150`, `"in_zone":true`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("QR payload %s missing %s", data, key)
		}
	}
}

func TestExportDXF_ZonesAndSleeves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.dxf")
	if err := ExportDXF(path, []model.PermissibleZone{buildTestZone()}, buildTestSleeves()); err != nil {
		t.Fatalf("ExportDXF returned error: %v", err)
	}

	d, err := dxf.Open(path)
	if err != nil {
		t.Fatalf("cannot reopen drawing: %v", err)
	}

	var lines, circles int
	var radii []float64
	for _, e := range d.Entities() {
		switch c := e.(type) {
		case *entity.Line:
			lines++
		case *entity.Circle:
			circles++
			radii = append(radii, c.Radius)
		}
	}
	if lines != 4+2 {
		t.Errorf("expected 4 zone edges and 2 sleeve axes, got %d lines", lines)
	}
	if circles != 2 {
		t.Fatalf("expected 2 sleeve circles, got %d", circles)
	}
	if radii[0] != 75 || radii[1] != 50 {
		t.Errorf("radii = %v, want [75 50]", radii)
	}
}

func TestExportDXF_Empty(t *testing.T) {
	if err := ExportDXF(filepath.Join(t.TempDir(), "x.dxf"), nil, nil); err == nil {
		t.Fatal("expected error for an empty drawing")
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, buildTestSummary(), buildTestTables()); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"a1b2c3d4", "Placed", "SizeExceeded", "Sleeve Violations - Ducts", "d1", "Sleeve diameter exceeds maximum size"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "SizeExceeded") > strings.Index(out, "ProximityViolation") {
		t.Error("rejections are not in report order")
	}
}
