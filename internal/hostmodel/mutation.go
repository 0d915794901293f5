package hostmodel

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// mutation implements Mutation on an open transaction.
type mutation struct {
	ctx context.Context
	tx  *sql.Tx
}

func (m *mutation) exec(query string, args ...any) (sql.Result, error) {
	return m.tx.ExecContext(m.ctx, query, args...)
}

func (m *mutation) PlaceSleeve(s model.PlacedSleeve) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = m.exec(`
		INSERT INTO sleeves (id, run_id, conduit_id, obstacle_id, template, in_zone, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RunID, s.ConduitID, s.ObstacleID, s.Template, s.InZone, string(data))
	return err
}

func (m *mutation) MarkSleeve(id string, inZone bool) error {
	var data string
	if err := m.tx.QueryRowContext(m.ctx, `SELECT data FROM sleeves WHERE id = ?`, id).Scan(&data); err != nil {
		return fmt.Errorf("sleeve %s: %w", id, err)
	}
	var s model.PlacedSleeve
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return err
	}
	s.InZone = inZone
	updated, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = m.exec(`UPDATE sleeves SET in_zone = ?, data = ? WHERE id = ?`, inZone, string(updated), id)
	return err
}

func (m *mutation) DeleteSleeves(runID string) (int, error) {
	return affected(m.exec(`DELETE FROM sleeves WHERE run_id = ?`, runID))
}

func (m *mutation) AddZone(runID string, z model.PermissibleZone) error {
	data, err := json.Marshal(z)
	if err != nil {
		return err
	}
	_, err = m.exec(`INSERT INTO zones (id, run_id, obstacle_id, data) VALUES (?, ?, ?, ?)`,
		z.ID, runID, z.ObstacleID, string(data))
	return err
}

func (m *mutation) DeleteZones(runID string) (int, error) {
	return affected(m.exec(`DELETE FROM zones WHERE run_id = ?`, runID))
}

func (m *mutation) EnsureFilter(name string, style model.ZoneStyle) (string, error) {
	var id string
	err := m.tx.QueryRowContext(m.ctx, `SELECT id FROM filters WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = uuid.New().String()
	_, err = m.exec(`INSERT INTO filters (id, name, fill_pattern, color, transparency) VALUES (?, ?, ?, ?, ?)`,
		id, name, style.FillPattern, style.Color, style.Transparent)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (m *mutation) ApplyFilter(view, filterID string) error {
	_, err := m.exec(`INSERT OR IGNORE INTO view_filters (view, filter_id) VALUES (?, ?)`, view, filterID)
	return err
}

func (m *mutation) ClearAnnotations() (int, error) {
	return affected(m.exec(`DELETE FROM annotations`))
}

func (m *mutation) Annotate(conduitID, message string) error {
	_, err := m.exec(`
		INSERT INTO annotations (conduit_id, message) VALUES (?, ?)
		ON CONFLICT(conduit_id) DO UPDATE SET message = excluded.message, updated_at = CURRENT_TIMESTAMP`,
		conduitID, message)
	return err
}

func (m *mutation) ReplaceReport(t model.ReportTable) error {
	if err := m.DeleteReport(t.Name); err != nil {
		return err
	}
	if _, err := m.exec(`INSERT INTO reports (name, category) VALUES (?, ?)`, t.Name, string(t.Category)); err != nil {
		return err
	}
	for _, r := range t.Rows {
		_, err := m.exec(`INSERT INTO report_rows (report_name, mark, conduit_id, message) VALUES (?, ?, ?, ?)`,
			t.Name, r.Mark, r.ConduitID, r.Message)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *mutation) DeleteReport(name string) error {
	if _, err := m.exec(`DELETE FROM report_rows WHERE report_name = ?`, name); err != nil {
		return err
	}
	_, err := m.exec(`DELETE FROM reports WHERE name = ?`, name)
	return err
}

func (m *mutation) RecordRun(s model.RunSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = m.exec(`INSERT INTO runs (id, placed, violations, summary) VALUES (?, ?, ?, ?)`,
		s.RunID, s.Placed, s.ViolationCount(), string(data))
	return err
}

func affected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
