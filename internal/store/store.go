// Package store persists sync runs and the cross-run entity memo.
package store

import (
	"context"

	"github.com/sells-group/leadsync-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Source string          `json:"source,omitempty"`
	Target string          `json:"target,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// SyncedEntity is a remembered (kind, key) -> target ID association from a
// completed run. It lets later runs skip a lookup when the same record comes
// around again.
type SyncedEntity struct {
	Kind     string `json:"kind"`
	Key      string `json:"key"`
	TargetID string `json:"target_id"`
}

// Store defines the persistence interface for the sync pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source, target string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	SetRunJobID(ctx context.Context, runID, jobID string) error
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Entity memo
	RememberEntities(ctx context.Context, entities []SyncedEntity) error
	LookupEntity(ctx context.Context, kind, key string) (string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
