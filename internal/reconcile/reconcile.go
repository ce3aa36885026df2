// Package reconcile implements create-or-update writes against a target
// system, keyed by identity, with per-run duplicate prevention.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsync-cli/internal/model"
)

// Entity is a target-system record: the ID the target assigned and its
// current field values.
type Entity struct {
	ID     string
	Fields map[string]any
}

// Target abstracts the destination system. Lookup returns (nil, nil) when
// no entity matches the key. Implementations live in internal/crm.
type Target interface {
	Lookup(ctx context.Context, kind, key string) (*Entity, error)
	Create(ctx context.Context, kind string, fields map[string]any) (string, error)
	Update(ctx context.Context, kind, id string, fields map[string]any) error
}

// Result is the outcome of one reconcile call.
type Result struct {
	Op       model.ReconcileOp
	TargetID string
}

type cacheKey struct {
	kind string
	key  string
}

// Reconciler performs lookup-before-write reconciliation. A per-run cache
// maps (kind, key) to the resolved target ID and last-written fields, so
// the same key can never create two entities within a run, and repeated
// identical writes are no-ops.
//
// The cache-backed invariant is exact within a run. Across concurrent runs
// it is best effort: the lookup step depends on the target system's
// read-after-write consistency.
type Reconciler struct {
	target Target
	seen   map[cacheKey]*Entity
}

// New creates a Reconciler for one run.
func New(target Target) *Reconciler {
	return &Reconciler{
		target: target,
		seen:   make(map[cacheKey]*Entity),
	}
}

// Reconcile looks up kind/key, creates the entity if absent, and otherwise
// updates only the fields that differ. Identical fields produce no write.
func (r *Reconciler) Reconcile(ctx context.Context, kind, key string, fields map[string]any) (Result, error) {
	ck := cacheKey{kind: kind, key: key}

	existing, cached := r.seen[ck]
	if !cached {
		var err error
		existing, err = r.target.Lookup(ctx, kind, key)
		if err != nil {
			return Result{}, eris.Wrap(err, fmt.Sprintf("reconcile: lookup %s %s", kind, key))
		}
	}

	if existing == nil {
		id, err := r.target.Create(ctx, kind, fields)
		if err != nil {
			return Result{}, eris.Wrap(err, fmt.Sprintf("reconcile: create %s %s", kind, key))
		}
		r.remember(ck, id, nil, fields)
		zap.L().Debug("reconcile: created",
			zap.String("kind", kind), zap.String("key", key), zap.String("id", id))
		return Result{Op: model.OpCreated, TargetID: id}, nil
	}

	changed := diff(existing.Fields, fields)
	if len(changed) == 0 {
		r.remember(ck, existing.ID, existing.Fields, nil)
		return Result{Op: model.OpUnchanged, TargetID: existing.ID}, nil
	}

	if err := r.target.Update(ctx, kind, existing.ID, changed); err != nil {
		return Result{}, eris.Wrap(err, fmt.Sprintf("reconcile: update %s %s", kind, existing.ID))
	}
	r.remember(ck, existing.ID, existing.Fields, changed)
	zap.L().Debug("reconcile: updated",
		zap.String("kind", kind), zap.String("key", key),
		zap.String("id", existing.ID), zap.Int("fields", len(changed)))
	return Result{Op: model.OpUpdated, TargetID: existing.ID}, nil
}

// remember records the entity state after a write so later calls for the
// same key diff against it instead of hitting the target again.
func (r *Reconciler) remember(ck cacheKey, id string, base, written map[string]any) {
	merged := make(map[string]any, len(base)+len(written))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range written {
		merged[k] = v
	}
	r.seen[ck] = &Entity{ID: id, Fields: merged}
}

// diff returns the desired fields whose values differ from existing ones.
// Values are compared by their string form: targets round-trip numbers
// through JSON, so 42 and 42.0 must count as equal.
func diff(existing, desired map[string]any) map[string]any {
	changed := make(map[string]any)
	for k, v := range desired {
		cur, ok := existing[k]
		if !ok || !equalValue(cur, v) {
			changed[k] = v
		}
	}
	return changed
}

func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
