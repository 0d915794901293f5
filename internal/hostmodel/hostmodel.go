// Package hostmodel is the boundary to the persisted building model: it
// supplies obstacle and conduit geometry and accepts the placement run's
// writes inside a single atomic mutation.
package hostmodel

import (
	"context"
	"errors"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// ErrTemplateNotFound is returned when a sleeve template name cannot be
// resolved.
var ErrTemplateNotFound = errors.New("sleeve template not found")

// Model is a source of geometry and the target of placement writes.
type Model interface {
	Obstacles(ctx context.Context) ([]model.Obstacle, error)
	Conduits(ctx context.Context) ([]model.Conduit, error)
	// SleeveTemplate resolves a template by name. It returns an error
	// wrapping ErrTemplateNotFound when no template has that name.
	SleeveTemplate(ctx context.Context, name string) (model.SleeveTemplate, error)
	// Mutate runs fn inside one atomic mutation. If fn returns an error
	// nothing it wrote is kept.
	Mutate(ctx context.Context, fn func(Mutation) error) error
}

// Mutation is the write surface available inside Model.Mutate.
type Mutation interface {
	PlaceSleeve(s model.PlacedSleeve) error
	MarkSleeve(id string, inZone bool) error
	DeleteSleeves(runID string) (int, error)

	AddZone(runID string, z model.PermissibleZone) error
	DeleteZones(runID string) (int, error)

	// EnsureFilter returns the id of the named classification filter,
	// creating it with style the first time.
	EnsureFilter(name string, style model.ZoneStyle) (string, error)
	ApplyFilter(view, filterID string) error

	ClearAnnotations() (int, error)
	Annotate(conduitID, message string) error

	// ReplaceReport deletes any report with the table's name and writes
	// the table in its place.
	ReplaceReport(t model.ReportTable) error
	DeleteReport(name string) error

	RecordRun(s model.RunSummary) error
}
