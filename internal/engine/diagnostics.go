package engine

import (
	"sort"
	"sync"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// Diagnostics accumulates violations per conduit for one run. Records are
// never retracted. It is safe for concurrent use.
type Diagnostics struct {
	mu       sync.Mutex
	byID     map[string]map[model.ViolationKind]bool
	category map[string]model.Category
	counts   map[model.ViolationKind]int
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		byID:     make(map[string]map[model.ViolationKind]bool),
		category: make(map[string]model.Category),
		counts:   make(map[model.ViolationKind]int),
	}
}

// Record adds a violation against a conduit. Every call is counted even when
// the conduit already carries the same kind.
func (d *Diagnostics) Record(conduitID string, cat model.Category, kind model.ViolationKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kinds, ok := d.byID[conduitID]
	if !ok {
		kinds = make(map[model.ViolationKind]bool)
		d.byID[conduitID] = kinds
		d.category[conduitID] = cat
	}
	kinds[kind] = true
	d.counts[kind]++
}

// Kinds returns the sorted violation kinds recorded against a conduit.
func (d *Diagnostics) Kinds(conduitID string) []model.ViolationKind {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []model.ViolationKind
	for k := range d.byID[conduitID] {
		out = append(out, k)
	}
	return model.SortKinds(out)
}

// Has reports whether a conduit carries a violation of the given kind.
func (d *Diagnostics) Has(conduitID string, kind model.ViolationKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[conduitID][kind]
}

// Counts returns how many times each kind was recorded.
func (d *Diagnostics) Counts() map[model.ViolationKind]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[model.ViolationKind]int, len(d.counts))
	for k, n := range d.counts {
		out[k] = n
	}
	return out
}

// Len returns the number of conduits with at least one violation.
func (d *Diagnostics) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

// Snapshot returns an immutable copy of the accumulated violations, ordered
// by conduit id.
func (d *Diagnostics) Snapshot() []model.ConduitViolations {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, 0, len(d.byID))
	for id := range d.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.ConduitViolations, 0, len(ids))
	for _, id := range ids {
		var kinds []model.ViolationKind
		for k := range d.byID[id] {
			kinds = append(kinds, k)
		}
		out = append(out, model.ConduitViolations{
			ConduitID: id,
			Category:  d.category[id],
			Kinds:     model.SortKinds(kinds),
		})
	}
	return out
}

// Clone returns an independent copy.
func (d *Diagnostics) Clone() *Diagnostics {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := NewDiagnostics()
	for id, kinds := range d.byID {
		cp := make(map[model.ViolationKind]bool, len(kinds))
		for k := range kinds {
			cp[k] = true
		}
		out.byID[id] = cp
		out.category[id] = d.category[id]
	}
	for k, n := range d.counts {
		out.counts[k] = n
	}
	return out
}

