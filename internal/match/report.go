package match

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"finmatch/internal/contour"
)

const reportHeader = " Rank\tError\tID\tDBPosit\tunkBegin\tunkTip\tunkEnd\tdbBegin\tdbTip\tdbEnd\tDamage"

// WriteReport writes the run as a tab-separated text report. Catalog
// positions are printed 1-based.
func WriteReport(w io.Writer, run *Run) error {
	if run == nil {
		return fmt.Errorf("write report: nil run")
	}
	bw := bufio.NewWriter(w)

	if run.QueryID != "" {
		fmt.Fprintf(bw, "Results for ID: %s\n", run.QueryID)
		if rank := run.Results.RankOf(run.QueryID); rank > 0 {
			fmt.Fprintf(bw, "The ID is ranked %d\n", rank)
		} else {
			fmt.Fprintln(bw, "ID does not match any in the results list.")
		}
	}
	fmt.Fprintf(bw, "Run: %s\n", run.ID)
	if run.Elapsed > 0 {
		fmt.Fprintf(bw, "Match time: %s\n", run.Elapsed.Round(time.Millisecond))
	}
	if run.Cancelled {
		fmt.Fprintf(bw, "Cancelled after %d of %d entries\n", len(run.Results)+len(run.Excluded), run.Scanned)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, reportHeader)
	fmt.Fprintln(bw, "_____________________________________________________________________")
	for _, r := range run.Results {
		u := controlPoints(r.Pair.Unknown)
		d := controlPoints(r.Pair.Database)
		fmt.Fprintf(bw, "  %d\t%.2f\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Rank, r.Distance, r.IndividualID, r.Position+1,
			u.BeginLE, u.Tip, u.EndTE, d.BeginLE, d.Tip, d.EndTE,
			r.DamageCategory)
	}

	if len(run.Excluded) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "Excluded:")
		for _, ex := range run.Excluded {
			fmt.Fprintf(bw, "  %s\t%d\t%s\t%v\n", ex.IndividualID, ex.Position+1, ex.Reason, ex.Err)
		}
	}
	if run.Skipped > 0 {
		fmt.Fprintf(bw, "\nSkipped by category filter: %d\n", run.Skipped)
	}
	return bw.Flush()
}

func controlPoints(c *contour.Contour) contour.Features {
	f, err := c.Features()
	if err != nil {
		return contour.Features{}
	}
	return f
}
