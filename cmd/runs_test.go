package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadsync-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 15, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Source:    "zoom",
			Target:    "hubspot",
			Status:    model.RunStatusDone,
			CreatedAt: now,
			UpdatedAt: now.Add(90 * time.Second),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Source:    "notion",
			Target:    "salesforce",
			Status:    model.RunStatusFailed,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-59 * time.Minute),
		},
	}

	out := formatRunsList(runs)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "SOURCE")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "abc12345")
	assert.Contains(t, out, "zoom")
	assert.Contains(t, out, "hubspot")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "2026-03-12 09:15")
	assert.Contains(t, out, "1m30s")
}

func TestFormatRunsList_Empty(t *testing.T) {
	assert.Equal(t, "No runs found.\n", formatRunsList(nil))
}
