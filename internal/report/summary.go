package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/piwi3910/SleevePlan/internal/model"
)

// WriteSummary prints the run totals and every report row as aligned text.
func WriteSummary(w io.Writer, s model.RunSummary, tables []model.ReportTable) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Run\t%s\n", model.ShortID(s.RunID))
	fmt.Fprintf(tw, "Obstacles\t%d\n", s.Obstacles)
	fmt.Fprintf(tw, "Conduits\t%d\n", s.Conduits)
	fmt.Fprintf(tw, "Zones\t%d\n", s.Zones)
	fmt.Fprintf(tw, "Candidates\t%d\n", s.Candidates)
	fmt.Fprintf(tw, "Placed\t%d\n", s.Placed)
	for _, k := range sortedKinds(s.Rejected) {
		fmt.Fprintf(tw, "%s\t%d\n", k, s.Rejected[k])
	}

	for _, t := range tables {
		fmt.Fprintf(tw, "\n%s\n", t.Name)
		if len(t.Rows) == 0 {
			fmt.Fprintln(tw, "  (none)")
			continue
		}
		for _, r := range t.Rows {
			fmt.Fprintf(tw, "  %d\t%s\t%s\n", r.Mark, r.ConduitID, r.Message)
		}
	}
	return tw.Flush()
}
