package importer

import (
	"context"
	"errors"
	"fmt"
	"os"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/yaml.v3"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// Scene is the YAML description of a coordination model.
//
//	obstacles:
//	  - id: B1
//	    name: Beam B1
//	    beams: [{start: [0, 0, 3000], end: [6000, 0, 3000], width: 300, height: 600}]
//	conduits:
//	  - {id: P1, category: pipe, diameter: 100, path: [[3000, -500, 3000], [3000, 500, 3000]]}
//	templates: [Round Sleeve]
type Scene struct {
	Obstacles []SceneObstacle `yaml:"obstacles"`
	Conduits  []SceneConduit  `yaml:"conduits"`
	Templates []string        `yaml:"templates"`
}

type point [3]float64

func (p point) vec() v3.Vec { return v3.Vec{X: p[0], Y: p[1], Z: p[2]} }

// SceneObstacle is one structural member made of boxes, beams and prisms.
type SceneObstacle struct {
	ID     string       `yaml:"id"`
	Name   string       `yaml:"name"`
	Up     *point       `yaml:"up,omitempty"`
	Boxes  []SceneBox   `yaml:"boxes"`
	Beams  []SceneBeam  `yaml:"beams"`
	Prisms []ScenePrism `yaml:"prisms"`
}

type SceneBox struct {
	Min point `yaml:"min"`
	Max point `yaml:"max"`
}

type SceneBeam struct {
	Start  point   `yaml:"start"`
	End    point   `yaml:"end"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ScenePrism is a convex plan outline extruded between two elevations.
type ScenePrism struct {
	Outline [][2]float64 `yaml:"outline"`
	Bottom  float64      `yaml:"bottom"`
	Top     float64      `yaml:"top"`
}

type SceneConduit struct {
	ID       string  `yaml:"id"`
	Category string  `yaml:"category"`
	Diameter float64 `yaml:"diameter"`
	Path     []point `yaml:"path"`
}

// LoadScene reads and parses a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &s, nil
}

// Build converts the scene into model values. Every malformed entry is
// reported; nothing is returned unless the whole scene is valid.
func (s *Scene) Build() ([]model.Obstacle, []model.Conduit, []model.SleeveTemplate, error) {
	var errs []error
	obstacles := make([]model.Obstacle, 0, len(s.Obstacles))
	for i, so := range s.Obstacles {
		ob, err := so.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("obstacle %d (%s): %w", i+1, so.ID, err))
			continue
		}
		obstacles = append(obstacles, ob)
	}

	conduits := make([]model.Conduit, 0, len(s.Conduits))
	for i, sc := range s.Conduits {
		if len(sc.Path) < 2 {
			errs = append(errs, fmt.Errorf("conduit %d (%s): path needs at least 2 points", i+1, sc.ID))
			continue
		}
		if sc.Diameter < 0 {
			errs = append(errs, fmt.Errorf("conduit %d (%s): negative diameter", i+1, sc.ID))
			continue
		}
		path := make([]v3.Vec, len(sc.Path))
		for j, p := range sc.Path {
			path[j] = p.vec()
		}
		c := model.NewConduit(model.ParseCategory(sc.Category), sc.Diameter, path...)
		if sc.ID != "" {
			c.ID = sc.ID
		}
		conduits = append(conduits, c)
	}

	templates := make([]model.SleeveTemplate, 0, len(s.Templates))
	for _, name := range s.Templates {
		templates = append(templates, model.SleeveTemplate{Name: name, Family: "Sleeves"})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, nil, nil, err
	}
	return obstacles, conduits, templates, nil
}

func (so SceneObstacle) build() (model.Obstacle, error) {
	up := v3.Vec{Z: 1}
	if so.Up != nil {
		up = so.Up.vec()
		if up.Length() < 1e-12 {
			return model.Obstacle{}, errors.New("up axis is zero")
		}
	}

	var solids []model.ConvexSolid
	for _, b := range so.Boxes {
		solids = append(solids, model.BoxSolid(b.Min.vec(), b.Max.vec()))
	}
	for j, b := range so.Beams {
		if b.Width <= 0 || b.Height <= 0 {
			return model.Obstacle{}, fmt.Errorf("beam %d: width and height must be positive", j+1)
		}
		solid := model.BeamSolid(b.Start.vec(), b.End.vec(), b.Width, b.Height, up)
		if len(solid.Faces) == 0 {
			return model.Obstacle{}, fmt.Errorf("beam %d: start and end coincide", j+1)
		}
		solids = append(solids, solid)
	}
	for j, p := range so.Prisms {
		outline := make([]v2.Vec, len(p.Outline))
		for k, xy := range p.Outline {
			outline[k] = v2.Vec{X: xy[0], Y: xy[1]}
		}
		if !model.IsConvex(outline) {
			return model.Obstacle{}, fmt.Errorf("prism %d: outline is not convex", j+1)
		}
		if p.Top <= p.Bottom {
			return model.Obstacle{}, fmt.Errorf("prism %d: top must be above bottom", j+1)
		}
		solids = append(solids, model.PrismSolid(outline, p.Bottom, p.Top))
	}
	if len(solids) == 0 {
		return model.Obstacle{}, errors.New("no boxes, beams or prisms")
	}

	ob := model.NewObstacle(so.Name, solids...)
	ob.Up = up
	if so.ID != "" {
		ob.ID = so.ID
	}
	if ob.Name == "" {
		ob.Name = ob.ID
	}
	return ob, nil
}

// Sink receives imported geometry. *hostmodel.Store implements it.
type Sink interface {
	PutObstacles(ctx context.Context, obstacles ...model.Obstacle) error
	PutConduits(ctx context.Context, conduits ...model.Conduit) error
	PutTemplates(ctx context.Context, templates ...model.SleeveTemplate) error
}

// Load writes a built scene into the sink.
func (s *Scene) Load(ctx context.Context, sink Sink) (obstacles, conduits int, err error) {
	obs, cs, tmpls, err := s.Build()
	if err != nil {
		return 0, 0, err
	}
	if err := sink.PutTemplates(ctx, tmpls...); err != nil {
		return 0, 0, fmt.Errorf("store templates: %w", err)
	}
	if err := sink.PutObstacles(ctx, obs...); err != nil {
		return 0, 0, fmt.Errorf("store obstacles: %w", err)
	}
	if err := sink.PutConduits(ctx, cs...); err != nil {
		return 0, 0, fmt.Errorf("store conduits: %w", err)
	}
	return len(obs), len(cs), nil
}
