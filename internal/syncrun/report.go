package syncrun

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/leadsync-cli/internal/model"
)

// topDeals caps the deal listing in the report.
const topDeals = 5

// FormatReport generates a human-readable run report. Failed records and
// gated-out records are reported separately: the former are data problems,
// the latter are quality filtering working as intended.
func FormatReport(source, target string, summary *model.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Sync Report: %s -> %s\n\n", source, target)

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Extracted: %d\n", summary.Extracted)
	fmt.Fprintf(&b, "- Skipped (no usable identity): %d\n", summary.Skipped)
	fmt.Fprintf(&b, "- Submitted: %d\n", summary.Submitted)
	fmt.Fprintf(&b, "- Enriched: %d\n", summary.Enriched)
	fmt.Fprintf(&b, "- Gated (below minimum score): %d\n", summary.Gated)
	fmt.Fprintf(&b, "- Created: %d\n", summary.Created)
	fmt.Fprintf(&b, "- Updated: %d\n", summary.Updated)
	fmt.Fprintf(&b, "- Unchanged: %d\n", summary.Unchanged)
	fmt.Fprintf(&b, "- Failed: %d\n", summary.Failed)
	fmt.Fprintf(&b, "- Pipeline value added: $%.2f\n\n", summary.TotalValue)

	deals := make([]model.RecordOutcome, 0, len(summary.Outcomes))
	for _, out := range summary.Outcomes {
		if out.Op == model.OpCreated && out.DealValue > 0 {
			deals = append(deals, out)
		}
	}
	if len(deals) > 0 {
		sort.Slice(deals, func(i, j int) bool { return deals[i].DealValue > deals[j].DealValue })
		if len(deals) > topDeals {
			deals = deals[:topDeals]
		}
		b.WriteString("## Top Deals\n")
		for _, d := range deals {
			name := d.Name
			if d.Company != "" {
				name += " (" + d.Company + ")"
			}
			fmt.Fprintf(&b, "- %s: $%.2f [score %d", name, d.DealValue, d.Score)
			if d.Owner != "" {
				fmt.Fprintf(&b, ", owner %s", d.Owner)
			}
			b.WriteString("]\n")
		}
		b.WriteString("\n")
	}

	if len(summary.Skips) > 0 {
		b.WriteString("## Skipped\n")
		for _, s := range summary.Skips {
			name := s.Name
			if name == "" {
				name = "(unnamed record)"
			}
			fmt.Fprintf(&b, "- %s: %s\n", name, s.Reason)
		}
		b.WriteString("\n")
	}

	if len(summary.Errors) > 0 {
		b.WriteString("## Errors\n")
		for _, e := range summary.Errors {
			name := e.Name
			if name == "" {
				name = e.Key
			}
			fmt.Fprintf(&b, "- %s: %s\n", name, e.Reason)
		}
		b.WriteString("\n")
	}

	return b.String()
}
