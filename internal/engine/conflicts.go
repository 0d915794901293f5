package engine

import (
	"fmt"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// Conflict is one pair of candidates closer than the allowed spacing.
type Conflict struct {
	Kept       model.CandidateKey
	Removed    model.CandidateKey
	KeptID     string // Conduit of the kept candidate
	RemovedID  string // Conduit of the removed candidate
	Distance   float64
	MinAllowed float64
}

// ResolveConflicts checks every unordered pair of candidates once. When two
// midpoints are closer than (d1 + d2) * multiplier the larger sleeve is marked
// for removal, with tie decided by the tie-break policy, and a proximity
// violation is recorded against its conduit. Marked candidates still take
// part in later pair checks. Candidates must be in key order.
func ResolveConflicts(cands []model.CandidateSleeve, cfg model.RunConfig, diag *Diagnostics) ([]model.CandidateSleeve, []Conflict) {
	removed := make([]bool, len(cands))
	var conflicts []Conflict

	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			a, b := cands[i], cands[j]
			minAllowed := (a.Diameter + b.Diameter) * cfg.ProximityMultiplier
			dist := a.Midpoint.Sub(b.Midpoint).Length()
			if dist >= minAllowed {
				continue
			}

			loser, winner := pickLoser(i, j, cands, cfg.TieBreak)
			removed[loser] = true
			diag.Record(cands[loser].ConduitID, cands[loser].ConduitCategory, model.ProximityViolation)
			conflicts = append(conflicts, Conflict{
				Kept:       cands[winner].Key,
				Removed:    cands[loser].Key,
				KeptID:     cands[winner].ConduitID,
				RemovedID:  cands[loser].ConduitID,
				Distance:   dist,
				MinAllowed: minAllowed,
			})
		}
	}

	kept := make([]model.CandidateSleeve, 0, len(cands))
	for i, c := range cands {
		if !removed[i] {
			kept = append(kept, c)
		}
	}
	return kept, conflicts
}

// pickLoser returns the index to remove and the index to keep for i < j.
func pickLoser(i, j int, cands []model.CandidateSleeve, tb model.TieBreak) (loser, winner int) {
	switch {
	case cands[i].Diameter > cands[j].Diameter:
		return i, j
	case cands[j].Diameter > cands[i].Diameter:
		return j, i
	case tb == model.TieBreakRemoveEarlier:
		return i, j
	default:
		return j, i
	}
}

// FormatConflicts produces human-readable messages for a list of conflicts.
func FormatConflicts(conflicts []Conflict) []string {
	msgs := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		msgs = append(msgs, fmt.Sprintf(
			"Sleeve on %s removed: %.1f mm from sleeve on %s, minimum spacing %.1f mm",
			c.RemovedID, c.Distance, c.KeptID, c.MinAllowed,
		))
	}
	return msgs
}
