package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"wormsign/internal/model"
)

func renderText(w io.Writer, res model.ScanResult) error {
	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, msg := range res.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
		fmt.Fprintln(w)
	}

	if len(res.Findings) > 0 {
		fmt.Fprintln(w, "Heuristic findings:")
		for _, f := range res.Findings {
			fmt.Fprintf(w, "  [%s] %s %s\n", f.Severity, f.RuleID, f.Message)
		}
		fmt.Fprintln(w)
	}

	if len(res.Matches) == 0 {
		_, err := fmt.Fprintln(w, "No compromised packages found.")
		return err
	}

	fmt.Fprintf(w, "Compromised packages detected (%d):\n\n", len(res.Matches))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tVERSION\tLOCATION")
	for _, m := range res.Matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.Version, m.Section)
	}
	return tw.Flush()
}
