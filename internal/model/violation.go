package model

import (
	"fmt"
	"sort"
	"strings"
)

// ViolationKind tags a rule a candidate or placed sleeve failed.
type ViolationKind int

const (
	SizeExceeded          ViolationKind = iota // Diameter above the absolute maximum
	HeightRatioExceeded                        // Diameter above the allowed fraction of obstacle height
	ProximityViolation                         // Removed for being too close to another sleeve
	OutOfPermissibleRange                      // Placed outside every permissible zone
)

// ViolationKinds lists every kind in report order.
var ViolationKinds = []ViolationKind{SizeExceeded, HeightRatioExceeded, ProximityViolation, OutOfPermissibleRange}

func (k ViolationKind) String() string {
	switch k {
	case SizeExceeded:
		return "SizeExceeded"
	case HeightRatioExceeded:
		return "HeightRatioExceeded"
	case ProximityViolation:
		return "ProximityViolation"
	case OutOfPermissibleRange:
		return "OutOfPermissibleRange"
	default:
		return "Unknown"
	}
}

// ParseViolationKind is the inverse of String.
func ParseViolationKind(s string) (ViolationKind, error) {
	for _, k := range ViolationKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown violation kind %q", s)
}

func (k ViolationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ViolationKind) UnmarshalText(b []byte) error {
	v, err := ParseViolationKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Message returns the text shown in violation reports.
func (k ViolationKind) Message() string {
	switch k {
	case SizeExceeded:
		return "Sleeve diameter exceeds maximum size"
	case HeightRatioExceeded:
		return "Sleeve diameter exceeds allowed ratio of beam height"
	case ProximityViolation:
		return "Sleeve too close to adjacent sleeve"
	case OutOfPermissibleRange:
		return "Sleeve outside permissible zone"
	default:
		return "Unknown violation"
	}
}

// ConduitViolations is the set of violations recorded against one conduit.
type ConduitViolations struct {
	ConduitID string          `json:"conduit_id"`
	Category  Category        `json:"category"`
	Kinds     []ViolationKind `json:"kinds"` // Sorted in report order
}

// Message joins the violation messages with commas.
func (cv ConduitViolations) Message() string {
	msgs := make([]string, len(cv.Kinds))
	for i, k := range cv.Kinds {
		msgs[i] = k.Message()
	}
	return strings.Join(msgs, ", ")
}

// SortKinds orders kinds in report order and drops duplicates.
func SortKinds(kinds []ViolationKind) []ViolationKind {
	seen := make(map[ViolationKind]bool, len(kinds))
	var out []ViolationKind
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReportRow is one line of a violation report.
type ReportRow struct {
	Mark      int    `json:"mark"`
	ConduitID string `json:"conduit_id"`
	Message   string `json:"message"`
}

// ReportTable is a named tabular report for one conduit category.
type ReportTable struct {
	Name     string      `json:"name"`
	Category Category    `json:"category"`
	Rows     []ReportRow `json:"rows"`
}

// RunSummary describes the outcome of one run.
type RunSummary struct {
	RunID      string                `json:"run_id"`
	Obstacles  int                   `json:"obstacles"`
	Conduits   int                   `json:"conduits"`
	Zones      int                   `json:"zones"`
	Candidates int                   `json:"candidates"`
	Placed     int                   `json:"placed"`
	Degenerate int                   `json:"degenerate"`
	Rejected   map[ViolationKind]int `json:"rejected"`
	Violations []ConduitViolations   `json:"violations"`
}

// ViolationCount returns how many conduits carry at least one violation.
func (s RunSummary) ViolationCount() int {
	return len(s.Violations)
}
