package engine

import "github.com/piwi3910/SleevePlan/internal/model"

// BuildTables renders violations into one report table per conduit
// category, pipes first. Rows follow the snapshot order and are numbered
// from 1. A category without violations still gets an empty table so the
// previous run's report is replaced.
func BuildTables(violations []model.ConduitViolations, cfg model.RunConfig) []model.ReportTable {
	tables := []model.ReportTable{
		{Name: cfg.ReportName(model.CategoryPipe), Category: model.CategoryPipe},
		{Name: cfg.ReportName(model.CategoryDuct), Category: model.CategoryDuct},
	}
	for _, cv := range violations {
		t := &tables[0]
		if cv.Category == model.CategoryDuct {
			t = &tables[1]
		}
		t.Rows = append(t.Rows, model.ReportRow{
			Mark:      len(t.Rows) + 1,
			ConduitID: cv.ConduitID,
			Message:   cv.Message(),
		})
	}
	return tables
}
