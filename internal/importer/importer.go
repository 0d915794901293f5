// Package importer loads conduit schedules, scene files and plan drawings
// into model types. Schedules support automatic delimiter detection,
// flexible column mapping and case-insensitive header recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Conduits  []model.Conduit
	Obstacles []model.Obstacle
	Errors    []string
	Warnings  []string
}

// ColumnMapping maps schedule column roles to their indices in the data.
type ColumnMapping struct {
	ID       int
	Category int
	Diameter int
	Start    [3]int // x1, y1, z1
	End      [3]int // x2, y2, z2
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"id":       {"id", "conduit", "conduit id", "tag", "mark", "name"},
	"category": {"category", "type", "system", "kind", "service"},
	"diameter": {"diameter", "dia", "od", "size", "outer diameter", "d"},
	"x1":       {"x1", "start x", "sx", "from x"},
	"y1":       {"y1", "start y", "sy", "from y"},
	"z1":       {"z1", "start z", "sz", "from z"},
	"x2":       {"x2", "end x", "ex", "to x"},
	"y2":       {"y2", "end y", "ey", "to y"},
	"z2":       {"z2", "end z", "ez", "to z"},
}

var coordRoles = [2][3]string{{"x1", "y1", "z1"}, {"x2", "y2", "z2"}}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

func unmapped() ColumnMapping {
	return ColumnMapping{ID: -1, Category: -1, Diameter: -1, Start: [3]int{-1, -1, -1}, End: [3]int{-1, -1, -1}}
}

// positional is the column order assumed when a schedule has no header.
func positional() ColumnMapping {
	return ColumnMapping{ID: 0, Category: 1, Diameter: 2, Start: [3]int{3, 4, 5}, End: [3]int{6, 7, 8}}
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping and false if no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := unmapped()
	set := func(dst *int, i int) {
		if *dst == -1 {
			*dst = i
		}
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "id":
					set(&mapping.ID, i)
				case "category":
					set(&mapping.Category, i)
				case "diameter":
					set(&mapping.Diameter, i)
				default:
					for end, roles := range coordRoles {
						for axis, r := range roles {
							if r != role {
								continue
							}
							if end == 0 {
								set(&mapping.Start[axis], i)
							} else {
								set(&mapping.End[axis], i)
							}
						}
					}
				}
			}
		}
	}

	if !isHeader {
		return positional(), false
	}
	return mapping, true
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parsePoint(row []string, cols [3]int, rowLabel, which string) (v3.Vec, string) {
	var xyz [3]float64
	for axis, col := range cols {
		s := getCell(row, col)
		name := coordRoles[0][axis][:1]
		if s == "" {
			return v3.Vec{}, fmt.Sprintf("%s: Missing %s %s value", rowLabel, which, name)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return v3.Vec{}, fmt.Sprintf("%s: Invalid %s %s '%s'", rowLabel, which, name, s)
		}
		xyz[axis] = v
	}
	return v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, ""
}

// parseRow extracts a Conduit from a row using the given column mapping.
// Returns the conduit, any error message, and any warning message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, count int) (model.Conduit, string, string) {
	start, errMsg := parsePoint(row, mapping.Start, rowLabel, "start")
	if errMsg != "" {
		return model.Conduit{}, errMsg, ""
	}
	end, errMsg := parsePoint(row, mapping.End, rowLabel, "end")
	if errMsg != "" {
		return model.Conduit{}, errMsg, ""
	}
	if start.Sub(end).Length() < 1e-9 {
		return model.Conduit{}, fmt.Sprintf("%s: Start and end points coincide", rowLabel), ""
	}

	var warning string
	var diameter float64
	if s := getCell(row, mapping.Diameter); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Conduit{}, fmt.Sprintf("%s: Invalid diameter '%s'", rowLabel, s), ""
		}
		if d < 0 {
			return model.Conduit{}, fmt.Sprintf("%s: Diameter must not be negative", rowLabel), ""
		}
		diameter = d
	} else {
		warning = fmt.Sprintf("%s: Missing diameter, using 0", rowLabel)
	}

	c := model.NewConduit(model.ParseCategory(getCell(row, mapping.Category)), diameter, start, end)
	if id := getCell(row, mapping.ID); id != "" {
		c.ID = id
	} else {
		c.ID = fmt.Sprintf("C%d", count+1)
	}
	return c, "", warning
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports a conduit schedule from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", result.Warnings)
}

// ImportCSVFromReader imports a schedule from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", nil)
}

// ImportExcel imports a conduit schedule from the first sheet of an Excel file.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		for end, roles := range coordRoles {
			cols := mapping.Start
			if end == 1 {
				cols = mapping.End
			}
			for axis, role := range roles {
				if cols[axis] == -1 {
					missing = append(missing, strings.ToUpper(role))
				}
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 4 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][3]), 64); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		c, errMsg, warning := parseRow(row, mapping, rowLabel, len(result.Conduits))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Conduits = append(result.Conduits, c)
	}

	return result
}
