package hostmodel

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Sleeves returns the placed sleeves of a run, or of every run when runID
// is empty, in placement order.
func (s *Store) Sleeves(ctx context.Context, runID string) ([]model.PlacedSleeve, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM sleeves WHERE ? = '' OR run_id = ? ORDER BY rowid`, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("query sleeves: %w", err)
	}
	defer rows.Close()

	var out []model.PlacedSleeve
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sl model.PlacedSleeve
		if err := json.Unmarshal([]byte(data), &sl); err != nil {
			return nil, fmt.Errorf("decode sleeve: %w", err)
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// Zones returns the permissible zones of a run, or of every run when runID
// is empty.
func (s *Store) Zones(ctx context.Context, runID string) ([]model.PermissibleZone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM zones WHERE ? = '' OR run_id = ? ORDER BY rowid`, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	var out []model.PermissibleZone
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var z model.PermissibleZone
		if err := json.Unmarshal([]byte(data), &z); err != nil {
			return nil, fmt.Errorf("decode zone: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// Report returns a stored report table by name.
func (s *Store) Report(ctx context.Context, name string) (model.ReportTable, error) {
	t := model.ReportTable{Name: name}
	var cat string
	err := s.db.QueryRowContext(ctx, `SELECT category FROM reports WHERE name = ?`, name).Scan(&cat)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("report %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return t, err
	}
	t.Category = model.ParseCategory(cat)

	rows, err := s.db.QueryContext(ctx,
		`SELECT mark, conduit_id, message FROM report_rows WHERE report_name = ? ORDER BY mark`, name)
	if err != nil {
		return t, err
	}
	defer rows.Close()
	for rows.Next() {
		var r model.ReportRow
		if err := rows.Scan(&r.Mark, &r.ConduitID, &r.Message); err != nil {
			return t, err
		}
		t.Rows = append(t.Rows, r)
	}
	return t, rows.Err()
}

// Annotations returns the current violation annotation of every conduit
// that has one.
func (s *Store) Annotations(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT conduit_id, message FROM annotations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, msg string
		if err := rows.Scan(&id, &msg); err != nil {
			return nil, err
		}
		out[id] = msg
	}
	return out, rows.Err()
}

// Filter returns the id and style of a named classification filter.
func (s *Store) Filter(ctx context.Context, name string) (string, model.ZoneStyle, error) {
	var id string
	var st model.ZoneStyle
	err := s.db.QueryRowContext(ctx,
		`SELECT id, fill_pattern, color, transparency FROM filters WHERE name = ?`, name,
	).Scan(&id, &st.FillPattern, &st.Color, &st.Transparent)
	if errors.Is(err, sql.ErrNoRows) {
		return "", st, fmt.Errorf("filter %q: %w", name, ErrNotFound)
	}
	return id, st, err
}

// ViewFilters returns the names of the filters applied to a view.
func (s *Store) ViewFilters(ctx context.Context, view string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.name FROM view_filters vf JOIN filters f ON f.id = vf.filter_id
		WHERE vf.view = ? ORDER BY f.name`, view)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Runs returns the summaries of all recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT summary FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sum model.RunSummary
		if err := json.Unmarshal([]byte(data), &sum); err != nil {
			return nil, fmt.Errorf("decode run summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// LastRun returns the most recent run summary.
func (s *Store) LastRun(ctx context.Context) (model.RunSummary, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM runs ORDER BY rowid DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunSummary{}, fmt.Errorf("last run: %w", ErrNotFound)
	}
	if err != nil {
		return model.RunSummary{}, err
	}
	var sum model.RunSummary
	if err := json.Unmarshal([]byte(data), &sum); err != nil {
		return model.RunSummary{}, fmt.Errorf("decode run summary: %w", err)
	}
	return sum, nil
}
