package engine

import (
	"github.com/piwi3910/SleevePlan/internal/geom"
	"github.com/piwi3910/SleevePlan/internal/model"
)

// GenerateCandidates pairs the intersection points of one record into
// entry/exit crossings and proposes a sleeve for each. Records that are
// empty or of odd length produce nothing. Zero-length pairs are skipped
// and counted as degenerate.
func GenerateCandidates(rec model.IntersectionRecord, c model.Conduit, ob model.Obstacle, obstacleIdx, conduitIdx int, clearance float64) (cands []model.CandidateSleeve, degenerate int) {
	if !rec.Valid() {
		return nil, 0
	}
	height := ob.Height()

	for i := 0; i+1 < len(rec.Points); i += 2 {
		entry, exit := rec.Points[i], rec.Points[i+1]
		d := exit.Sub(entry)
		length := d.Length()
		if length < geom.Epsilon {
			degenerate++
			continue
		}
		cands = append(cands, model.CandidateSleeve{
			Key:             model.CandidateKey{Obstacle: obstacleIdx, Conduit: conduitIdx, Pair: i / 2},
			ConduitID:       c.ID,
			ConduitCategory: c.Category,
			ObstacleID:      ob.ID,
			ObstacleHeight:  height,
			Midpoint:        entry.Add(exit).MulScalar(0.5),
			Direction:       d.MulScalar(1 / length),
			Length:          length,
			Diameter:        c.Diameter + clearance,
		})
	}
	return cands, degenerate
}
