package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/scan-io-git/iacsec/internal/sarif"
	"github.com/scan-io-git/iacsec/internal/schema"
)

// WriteTable prints records as an aligned console table. False positives are listed too so the
// operator sees what the model filtered out.
func WriteTable(w io.Writer, records []schema.JoinedRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "RULE\tSEVERITY\tLABEL\tSCORE\tLOCATION")
	for _, rec := range records {
		f := rec.Detection
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%s\n",
			f.RuleID(), sarif.SeverityLabel(f.Severity()), rec.Prediction.Label(), rec.Prediction.Score(), f.Location())
	}

	tp := 0
	for _, rec := range records {
		if rec.Prediction.TruePositive() {
			tp++
		}
	}
	fmt.Fprintf(tw, "\n%d findings, %d true positives, %d filtered\n", len(records), tp, len(records)-tp)
	return tw.Flush()
}
