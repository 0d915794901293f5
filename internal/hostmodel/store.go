package hostmodel

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/piwi3910/SleevePlan/internal/model"
)

const obstacleCacheSize = 1024

// cachedObstacle is a decoded obstacle and the revision it was decoded at.
type cachedObstacle struct {
	revision int64
	obstacle model.Obstacle
}

// Store is a Model persisted in a SQLite database.
type Store struct {
	db    *sql.DB
	path  string
	log   *zap.Logger
	cache *lru.Cache[string, cachedObstacle]
}

var _ Model = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer. Everything inside Mutate goes through
	// the transaction, never through db.
	db.SetMaxOpenConns(1)

	cache, err := lru.New[string, cachedObstacle](obstacleCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, path: path, log: log, cache: cache}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("host model opened", zap.String("path", path))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file the store was opened on.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		name TEXT PRIMARY KEY,
		family TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS obstacles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		up TEXT NOT NULL,
		solids TEXT NOT NULL,
		revision INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS conduits (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL DEFAULT 'pipe',
		diameter REAL,
		path TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS zones (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		obstacle_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_zones_run ON zones(run_id);

	CREATE TABLE IF NOT EXISTS sleeves (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		conduit_id TEXT NOT NULL,
		obstacle_id TEXT NOT NULL,
		template TEXT NOT NULL,
		in_zone INTEGER NOT NULL DEFAULT 0,
		data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sleeves_run ON sleeves(run_id);

	CREATE TABLE IF NOT EXISTS filters (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		fill_pattern TEXT NOT NULL,
		color TEXT NOT NULL,
		transparency INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS view_filters (
		view TEXT NOT NULL,
		filter_id TEXT NOT NULL,
		PRIMARY KEY (view, filter_id)
	);

	CREATE TABLE IF NOT EXISTS annotations (
		conduit_id TEXT PRIMARY KEY,
		message TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reports (
		name TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS report_rows (
		report_name TEXT NOT NULL,
		mark INTEGER NOT NULL,
		conduit_id TEXT NOT NULL,
		message TEXT NOT NULL,
		PRIMARY KEY (report_name, mark)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		placed INTEGER NOT NULL,
		violations INTEGER NOT NULL,
		summary TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Obstacles returns every obstacle in insertion order. Decoded geometry is
// cached per obstacle until its revision changes.
func (s *Store) Obstacles(ctx context.Context) ([]model.Obstacle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, revision FROM obstacles ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query obstacles: %w", err)
	}
	type ref struct {
		id  string
		rev int64
	}
	var refs []ref
	for rows.Next() {
		var r ref
		if err := rows.Scan(&r.id, &r.rev); err != nil {
			rows.Close()
			return nil, err
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Obstacle, 0, len(refs))
	for _, r := range refs {
		if c, ok := s.cache.Get(r.id); ok && c.revision == r.rev {
			out = append(out, c.obstacle)
			continue
		}
		ob, err := s.loadObstacle(ctx, r.id)
		if err != nil {
			return nil, err
		}
		s.cache.Add(r.id, cachedObstacle{revision: r.rev, obstacle: ob})
		out = append(out, ob)
	}
	return out, nil
}

func (s *Store) loadObstacle(ctx context.Context, id string) (model.Obstacle, error) {
	var name, upJSON, solidsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, up, solids FROM obstacles WHERE id = ?`, id,
	).Scan(&name, &upJSON, &solidsJSON)
	if err != nil {
		return model.Obstacle{}, fmt.Errorf("load obstacle %s: %w", id, err)
	}
	ob := model.Obstacle{ID: id, Name: name}
	if err := json.Unmarshal([]byte(upJSON), &ob.Up); err != nil {
		return model.Obstacle{}, fmt.Errorf("decode obstacle %s axis: %w", id, err)
	}
	if err := json.Unmarshal([]byte(solidsJSON), &ob.Solids); err != nil {
		return model.Obstacle{}, fmt.Errorf("decode obstacle %s solids: %w", id, err)
	}
	return ob, nil
}

// Conduits returns every conduit in insertion order. A missing diameter
// reads as zero.
func (s *Store) Conduits(ctx context.Context) ([]model.Conduit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, COALESCE(diameter, 0), path FROM conduits ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query conduits: %w", err)
	}
	defer rows.Close()

	var out []model.Conduit
	for rows.Next() {
		var c model.Conduit
		var cat, pathJSON string
		if err := rows.Scan(&c.ID, &cat, &c.Diameter, &pathJSON); err != nil {
			return nil, err
		}
		c.Category = model.ParseCategory(cat)
		if err := json.Unmarshal([]byte(pathJSON), &c.Path); err != nil {
			return nil, fmt.Errorf("decode conduit %s path: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SleeveTemplate(ctx context.Context, name string) (model.SleeveTemplate, error) {
	t := model.SleeveTemplate{Name: name}
	err := s.db.QueryRowContext(ctx, `SELECT family FROM templates WHERE name = ?`, name).Scan(&t.Family)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SleeveTemplate{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	if err != nil {
		return model.SleeveTemplate{}, fmt.Errorf("query template %q: %w", name, err)
	}
	return t, nil
}

// Mutate runs fn in one transaction. The transaction is rolled back when fn
// returns an error or panics.
func (s *Store) Mutate(ctx context.Context, fn func(Mutation) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mutation: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&mutation{ctx: ctx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mutation: %w", err)
	}
	return nil
}

// PutObstacles inserts or replaces obstacles. A replaced obstacle keeps its
// position in the enumeration order and gets a new revision.
func (s *Store) PutObstacles(ctx context.Context, obs ...model.Obstacle) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, ob := range obs {
			up, err := json.Marshal(ob.Up)
			if err != nil {
				return err
			}
			solids, err := json.Marshal(ob.Solids)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO obstacles (id, name, up, solids) VALUES (?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					up = excluded.up,
					solids = excluded.solids,
					revision = obstacles.revision + 1`,
				ob.ID, ob.Name, string(up), string(solids))
			if err != nil {
				return fmt.Errorf("put obstacle %s: %w", ob.ID, err)
			}
		}
		return nil
	})
}

// PutConduits inserts or replaces conduits.
func (s *Store) PutConduits(ctx context.Context, conduits ...model.Conduit) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range conduits {
			path, err := json.Marshal(c.Path)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO conduits (id, category, diameter, path) VALUES (?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					category = excluded.category,
					diameter = excluded.diameter,
					path = excluded.path`,
				c.ID, string(c.Category), c.Diameter, string(path))
			if err != nil {
				return fmt.Errorf("put conduit %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// PutTemplates registers sleeve templates.
func (s *Store) PutTemplates(ctx context.Context, templates ...model.SleeveTemplate) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range templates {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO templates (name, family) VALUES (?, ?)
				 ON CONFLICT(name) DO UPDATE SET family = excluded.family`,
				t.Name, t.Family)
			if err != nil {
				return fmt.Errorf("put template %q: %w", t.Name, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
