package model

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// ShortID returns the leading eight characters of an id for display.
// Stored ids are full UUIDs.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Category groups conduits for reporting.
type Category string

const (
	CategoryPipe Category = "pipe"
	CategoryDuct Category = "duct"
)

// ParseCategory maps free-form category names onto the known categories.
// Anything that is not recognisably a duct is treated as a pipe.
func ParseCategory(s string) Category {
	switch s {
	case "duct", "Duct", "DUCT", "ducts", "Ducts", "air", "hvac", "HVAC":
		return CategoryDuct
	default:
		return CategoryPipe
	}
}

func (c Category) String() string {
	if c == CategoryDuct {
		return "Duct"
	}
	return "Pipe"
}

// Conduit is a linear pipe or duct run.
type Conduit struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Diameter float64  `json:"diameter"` // Nominal outer diameter in mm, 0 when unknown
	Path     []v3.Vec `json:"path"`     // Axis polyline, at least two points
}

func NewConduit(category Category, diameter float64, path ...v3.Vec) Conduit {
	return Conduit{
		ID:       uuid.New().String(),
		Category: category,
		Diameter: diameter,
		Path:     path,
	}
}

// Bounds returns the axis-aligned bounds of the conduit axis.
func (c Conduit) Bounds() (min, max v3.Vec) {
	return boundsOf(c.Path)
}

// Face is a planar polygon. Vertices are wound counter-clockwise when seen
// from outside the solid, so the right-hand normal points outward.
type Face struct {
	Vertices []v3.Vec `json:"vertices"`
}

// ConvexSolid is a closed convex polyhedron described by its faces.
type ConvexSolid struct {
	Faces []Face `json:"faces"`
}

// Obstacle is a structural member conduits may have to pass through.
// Its boundary is the union of one or more convex constituents.
type Obstacle struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Up     v3.Vec        `json:"up"` // Local vertical axis; zero means +Z
	Solids []ConvexSolid `json:"solids"`
}

func NewObstacle(name string, solids ...ConvexSolid) Obstacle {
	return Obstacle{
		ID:     uuid.New().String(),
		Name:   name,
		Up:     v3.Vec{X: 0, Y: 0, Z: 1},
		Solids: solids,
	}
}

// UpAxis returns the normalized vertical axis, defaulting to +Z.
func (o Obstacle) UpAxis() v3.Vec {
	l := o.Up.Length()
	if l < 1e-12 {
		return v3.Vec{X: 0, Y: 0, Z: 1}
	}
	return o.Up.MulScalar(1 / l)
}

// Height returns the extent of the obstacle along its vertical axis.
func (o Obstacle) Height() float64 {
	up := o.UpAxis()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range o.Solids {
		for _, f := range s.Faces {
			for _, v := range f.Vertices {
				d := v.Dot(up)
				lo = math.Min(lo, d)
				hi = math.Max(hi, d)
			}
		}
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}

// Bounds returns the axis-aligned bounds of all constituent vertices.
func (o Obstacle) Bounds() (min, max v3.Vec) {
	var pts []v3.Vec
	for _, s := range o.Solids {
		for _, f := range s.Faces {
			pts = append(pts, f.Vertices...)
		}
	}
	return boundsOf(pts)
}

func boundsOf(pts []v3.Vec) (min, max v3.Vec) {
	if len(pts) == 0 {
		return v3.Vec{}, v3.Vec{}
	}
	min, max = pts[0], pts[0]
	for _, p := range pts[1:] {
		min = v3.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)}
		max = v3.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
	}
	return min, max
}

// PermissibleZone is the inset region of one obstacle side face where a
// conduit may pass through. It never changes after it is built.
type PermissibleZone struct {
	ID         string   `json:"id"`
	ObstacleID string   `json:"obstacle_id"`
	SolidIndex int      `json:"solid_index"`
	FaceIndex  int      `json:"face_index"`
	Origin     v3.Vec   `json:"origin"` // Face frame origin
	U          v3.Vec   `json:"u"`      // In-plane horizontal axis
	V          v3.Vec   `json:"v"`      // In-plane vertical axis
	Normal     v3.Vec   `json:"normal"` // Outward face normal
	Profile    []v2.Vec `json:"profile"`
	Thickness  float64  `json:"thickness"` // Extrusion depth into the obstacle
	Reach      float64  `json:"reach"`     // Obstacle depth behind the face
}

// ToWorld maps face-frame coordinates to model space.
func (z PermissibleZone) ToWorld(u, v, depth float64) v3.Vec {
	return z.Origin.Add(z.U.MulScalar(u)).Add(z.V.MulScalar(v)).Add(z.Normal.MulScalar(depth))
}

// Corners returns the profile corners on the face plane in model space.
func (z PermissibleZone) Corners() []v3.Vec {
	corners := make([]v3.Vec, len(z.Profile))
	for i, p := range z.Profile {
		corners[i] = z.ToWorld(p.X, p.Y, 0)
	}
	return corners
}

// Extent returns the profile size along U and V.
func (z PermissibleZone) Extent() (du, dv float64) {
	if len(z.Profile) == 0 {
		return 0, 0
	}
	minU, maxU := z.Profile[0].X, z.Profile[0].X
	minV, maxV := z.Profile[0].Y, z.Profile[0].Y
	for _, p := range z.Profile[1:] {
		minU, maxU = math.Min(minU, p.X), math.Max(maxU, p.X)
		minV, maxV = math.Min(minV, p.Y), math.Max(maxV, p.Y)
	}
	return maxU - minU, maxV - minV
}

// IntersectionRecord lists where one conduit axis crosses one obstacle,
// ordered by the conduit's curve parameter.
type IntersectionRecord struct {
	ConduitID  string    `json:"conduit_id"`
	ObstacleID string    `json:"obstacle_id"`
	Points     []v3.Vec  `json:"points"`
	Params     []float64 `json:"params"`
}

// Valid reports whether the points pair up into entry/exit crossings.
func (r IntersectionRecord) Valid() bool {
	return len(r.Points) > 0 && len(r.Points)%2 == 0
}

// CandidateKey orders candidates deterministically regardless of which
// worker produced them.
type CandidateKey struct {
	Obstacle int `json:"obstacle"`
	Conduit  int `json:"conduit"`
	Pair     int `json:"pair"`
}

// Less orders keys by obstacle, then conduit, then pair.
func (k CandidateKey) Less(o CandidateKey) bool {
	if k.Obstacle != o.Obstacle {
		return k.Obstacle < o.Obstacle
	}
	if k.Conduit != o.Conduit {
		return k.Conduit < o.Conduit
	}
	return k.Pair < o.Pair
}

// CandidateSleeve is a proposed sleeve at one conduit/obstacle crossing.
type CandidateSleeve struct {
	Key             CandidateKey `json:"key"`
	ConduitID       string       `json:"conduit_id"`
	ConduitCategory Category     `json:"conduit_category"`
	ObstacleID      string       `json:"obstacle_id"`
	ObstacleHeight  float64      `json:"obstacle_height"`
	Midpoint        v3.Vec       `json:"midpoint"`
	Direction       v3.Vec       `json:"direction"` // Unit vector from entry to exit
	Length          float64      `json:"length"`
	Diameter        float64      `json:"diameter"` // Conduit diameter plus clearance
}

// SleeveTemplate is the parametric component a sleeve is instantiated from.
type SleeveTemplate struct {
	Name   string `json:"name"`
	Family string `json:"family"`
}

// PlacedSleeve is a sleeve persisted in the host model.
type PlacedSleeve struct {
	ID            string  `json:"id"`
	RunID         string  `json:"run_id"`
	ConduitID     string  `json:"conduit_id"`
	ObstacleID    string  `json:"obstacle_id"`
	Template      string  `json:"template"`
	Position      v3.Vec  `json:"position"`
	Direction     v3.Vec  `json:"direction"`
	RotationAxis  v3.Vec  `json:"rotation_axis"`
	RotationAngle float64 `json:"rotation_angle"` // Radians, from the template's +Z axis
	Length        float64 `json:"length"`
	Diameter      float64 `json:"diameter"`
	InZone        bool    `json:"in_zone"`
}

func NewPlacedSleeve(runID, template string, c CandidateSleeve) PlacedSleeve {
	return PlacedSleeve{
		ID:         uuid.New().String(),
		RunID:      runID,
		ConduitID:  c.ConduitID,
		ObstacleID: c.ObstacleID,
		Template:   template,
		Position:   c.Midpoint,
		Direction:  c.Direction,
		Length:     c.Length,
		Diameter:   c.Diameter,
	}
}

// ZoneStyle is the visual override applied to permissible zones in a view.
type ZoneStyle struct {
	FillPattern string `json:"fill_pattern" yaml:"fill_pattern"`
	Color       string `json:"color" yaml:"color"`
	Transparent int    `json:"transparency" yaml:"transparency"` // Percent
}

func DefaultZoneStyle() ZoneStyle {
	return ZoneStyle{
		FillPattern: "Solid Fill",
		Color:       "#4CAF50",
		Transparent: 50,
	}
}
