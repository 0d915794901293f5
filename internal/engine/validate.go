package engine

import "github.com/piwi3910/SleevePlan/internal/model"

// ValidateCandidates applies the size rules in order and returns the
// candidates that pass both. The first failed rule is recorded against the
// candidate's conduit and later rules are not evaluated.
func ValidateCandidates(cands []model.CandidateSleeve, cfg model.RunConfig, diag *Diagnostics) []model.CandidateSleeve {
	kept := make([]model.CandidateSleeve, 0, len(cands))
	for _, c := range cands {
		if kind, ok := checkSize(c, cfg); !ok {
			diag.Record(c.ConduitID, c.ConduitCategory, kind)
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func checkSize(c model.CandidateSleeve, cfg model.RunConfig) (model.ViolationKind, bool) {
	if c.Diameter > cfg.AbsoluteMaxDiameter {
		return model.SizeExceeded, false
	}
	if c.Diameter > c.ObstacleHeight*cfg.HeightRatioMax {
		return model.HeightRatioExceeded, false
	}
	return 0, true
}
