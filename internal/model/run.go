package model

import "time"

// RunStatus represents the current state of a sync run.
//
// Transitions are monotonic: idle -> extracting -> submitted -> polling ->
// reconciling -> done. The failed state is reachable only from extracting,
// submitted, or polling (systemic failures and poll timeouts); per-record
// errors during reconciliation never fail the run.
type RunStatus string

const (
	RunStatusIdle        RunStatus = "idle"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusSubmitted   RunStatus = "submitted"
	RunStatusPolling     RunStatus = "polling"
	RunStatusReconciling RunStatus = "reconciling"
	RunStatusDone        RunStatus = "done"
	RunStatusFailed      RunStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusDone || s == RunStatusFailed
}

// CanTransition reports whether moving from s to next is legal.
func (s RunStatus) CanTransition(next RunStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case RunStatusExtracting:
		return s == RunStatusIdle
	case RunStatusSubmitted:
		return s == RunStatusExtracting
	case RunStatusPolling:
		return s == RunStatusSubmitted
	case RunStatusReconciling:
		return s == RunStatusPolling
	case RunStatusDone:
		return s == RunStatusReconciling
	case RunStatusFailed:
		return s == RunStatusExtracting || s == RunStatusSubmitted || s == RunStatusPolling
	default:
		return false
	}
}

// Run represents a single sync run.
type Run struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	Target    string      `json:"target"`
	Status    RunStatus   `json:"status"`
	JobID     string      `json:"job_id,omitempty"`
	Error     string      `json:"error,omitempty"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ReconcileOp describes what the reconciler did for one entity.
type ReconcileOp string

const (
	OpCreated   ReconcileOp = "created"
	OpUpdated   ReconcileOp = "updated"
	OpUnchanged ReconcileOp = "unchanged"
)

// RecordOutcome is the per-record result of reconciliation.
type RecordOutcome struct {
	Key        string      `json:"key"`
	ExternalID string      `json:"external_id,omitempty"`
	Name       string      `json:"name,omitempty"`
	Company    string      `json:"company,omitempty"`
	Op         ReconcileOp `json:"op"`
	TargetID   string      `json:"target_id,omitempty"`
	DealID     string      `json:"deal_id,omitempty"`
	Score      int         `json:"score"`
	DealValue  float64     `json:"deal_value"`
	Owner      string      `json:"owner,omitempty"`
}

// RecordError captures a per-record failure that did not abort the run.
type RecordError struct {
	Key    string `json:"key,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// SkipReason explains why a record was dropped before submission.
type SkipReason struct {
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// RunSummary is the final outcome of a run. Failed records are listed
// separately from gated-out (low score) records so operators can tell
// data-quality problems apart from quality filtering.
type RunSummary struct {
	Extracted  int     `json:"extracted"`   // records pulled from the source
	Skipped    int     `json:"skipped"`     // dropped during identity extraction
	Submitted  int     `json:"submitted"`   // sent to the enrichment job
	Enriched   int     `json:"enriched"`    // results returned by the job
	Gated      int     `json:"gated"`       // below the minimum score gate
	Created    int     `json:"created"`     // new target entities
	Updated    int     `json:"updated"`     // existing entities with field changes
	Unchanged  int     `json:"unchanged"`   // existing entities, nothing to write
	Failed     int     `json:"failed"`      // per-record errors
	TotalValue float64 `json:"total_value"` // sum of deal values written

	Outcomes []RecordOutcome `json:"outcomes,omitempty"`
	Skips    []SkipReason    `json:"skips,omitempty"`
	Errors   []RecordError   `json:"errors,omitempty"`
}
