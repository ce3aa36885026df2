package syncrun

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadsync-cli/internal/model"
)

func TestFormatReport(t *testing.T) {
	summary := &model.RunSummary{
		Extracted:  5,
		Skipped:    2,
		Submitted:  3,
		Enriched:   3,
		Created:    2,
		Failed:     1,
		TotalValue: 45000,
		Outcomes: []model.RecordOutcome{
			{Name: "Ada Lovelace", Company: "Acme", Op: model.OpCreated, DealValue: 30000, Score: 80, Owner: "owner-east"},
			{Name: "Bob Smith", Op: model.OpCreated, DealValue: 15000, Score: 65},
			{Name: "Carol Jones", Op: model.OpUpdated, DealValue: 20000, Score: 70},
		},
		Skips: []model.SkipReason{
			{Name: "Dan", Reason: "generic email provider"},
			{Reason: "no identity"},
		},
		Errors: []model.RecordError{
			{Key: "eve@beta.io", Reason: "create person: 500"},
		},
	}

	out := FormatReport("zoom", "pipedrive", summary)

	assert.Contains(t, out, "# Sync Report: zoom -> pipedrive")
	assert.Contains(t, out, "- Extracted: 5")
	assert.Contains(t, out, "- Created: 2")
	assert.Contains(t, out, "- Failed: 1")
	assert.Contains(t, out, "Pipeline value added: $45000.00")

	assert.Contains(t, out, "## Top Deals")
	assert.Contains(t, out, "Ada Lovelace (Acme): $30000.00 [score 80, owner owner-east]")
	assert.Contains(t, out, "Bob Smith: $15000.00 [score 65]")
	// Updated records are not listed as new deals.
	assert.NotContains(t, out, "Carol Jones")
	// Highest value first.
	assert.Less(t, strings.Index(out, "Ada Lovelace"), strings.Index(out, "Bob Smith"))

	assert.Contains(t, out, "## Skipped")
	assert.Contains(t, out, "- Dan: generic email provider")
	assert.Contains(t, out, "- (unnamed record): no identity")

	assert.Contains(t, out, "## Errors")
	assert.Contains(t, out, "- eve@beta.io: create person: 500")
}

func TestFormatReport_TopDealsCapped(t *testing.T) {
	summary := &model.RunSummary{}
	for i := 0; i < 8; i++ {
		summary.Outcomes = append(summary.Outcomes, model.RecordOutcome{
			Name:      "Lead",
			Op:        model.OpCreated,
			DealValue: float64(1000 * (i + 1)),
		})
	}

	out := FormatReport("hubspot", "hubspot", summary)
	assert.Equal(t, topDeals, strings.Count(out, "- Lead:"))
	// The largest values survive the cap.
	assert.Contains(t, out, "$8000.00")
	assert.NotContains(t, out, "$1000.00")
}

func TestFormatReport_QuietSectionsOmitted(t *testing.T) {
	out := FormatReport("notion", "salesforce", &model.RunSummary{Extracted: 1, Unchanged: 1})

	assert.Contains(t, out, "## Summary")
	assert.NotContains(t, out, "## Top Deals")
	assert.NotContains(t, out, "## Skipped")
	assert.NotContains(t, out, "## Errors")
}
