// Package syncrun drives a bulk enrichment sync run end to end: extract
// identities, submit one enrichment job, await completion, then merge,
// score, and reconcile each result against the target system.
package syncrun

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsync-cli/internal/crm"
	"github.com/sells-group/leadsync-cli/internal/identity"
	"github.com/sells-group/leadsync-cli/internal/merge"
	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/internal/reconcile"
	"github.com/sells-group/leadsync-cli/internal/scoring"
	"github.com/sells-group/leadsync-cli/internal/store"
	"github.com/sells-group/leadsync-cli/pkg/surfe"
)

// Source pulls the records a run starts from.
type Source interface {
	Name() string
	FetchRecords(ctx context.Context) ([]model.SourceRecord, error)
}

// FieldMapper translates an enriched record into target-specific write
// payloads. CompanyFields and DealFields return nil when the target has no
// such concept; LinkCompany injects the resolved company reference into
// the person payload.
type FieldMapper interface {
	PersonFields(rec model.EnrichedRecord, metrics model.DerivedMetrics) map[string]any
	CompanyFields(rec model.EnrichedRecord) map[string]any
	LinkCompany(person map[string]any, companyID string)
	DealFields(rec model.EnrichedRecord, metrics model.DerivedMetrics, personID string) map[string]any
	ActivityFields(rec model.EnrichedRecord, dealID string) map[string]any
}

// Target couples a reconcile target with its name and field mapping.
type Target struct {
	Name   string
	Writer reconcile.Target
	Mapper FieldMapper
}

// Config holds the per-run knobs.
type Config struct {
	MinScore      int
	BaseDealValue float64
	Weights       scoring.Weights
	Multipliers   scoring.Multipliers
	Territory     map[string]string
	DefaultOwner  string

	// HighValueTopic applies the topic bonus to every deal value in the
	// run, e.g. when the source webinar covers a high-intent topic.
	HighValueTopic bool

	// CreateDeals creates a deal and follow-up activity for each newly
	// created person, on targets whose mapper supports them.
	CreateDeals bool

	// DryRun reads from the target but performs no writes.
	DryRun bool

	// MaxBatch caps the submitted batch (default surfe.MaxBatchSize).
	MaxBatch int

	// DenyDomains extends the generic email provider deny-list.
	DenyDomains []string

	PollOpts []surfe.PollOption
}

// Orchestrator runs the sync pipeline for one source/target pair.
type Orchestrator struct {
	cfg      Config
	source   Source
	enricher surfe.Client
	target   Target
	store    store.Store
}

// New creates an Orchestrator.
func New(cfg Config, source Source, enricher surfe.Client, target Target, st store.Store) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		source:   source,
		enricher: enricher,
		target:   target,
		store:    st,
	}
}

// candidate is a source record paired with its identity key.
type candidate struct {
	rec model.SourceRecord
	key identity.Key
}

// Run executes one sync run. Systemic failures (fetch, submit, poll) mark
// the run failed and abort before any target write. Per-record failures
// during reconciliation are recorded in the summary and never abort the
// run. Cancellation is honored at poll iterations and record boundaries.
func (o *Orchestrator) Run(ctx context.Context) (*model.RunSummary, error) {
	run, err := o.store.CreateRun(ctx, o.source.Name(), o.target.Name)
	if err != nil {
		return nil, eris.Wrap(err, "syncrun: create run")
	}
	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("source", run.Source),
		zap.String("target", run.Target))

	if err := o.advance(ctx, run, model.RunStatusExtracting); err != nil {
		return nil, err
	}

	records, err := o.source.FetchRecords(ctx)
	if err != nil {
		return nil, o.fail(ctx, run, eris.Wrap(err, "syncrun: fetch records"))
	}

	summary := &model.RunSummary{Extracted: len(records)}
	extractor := identity.NewExtractor(o.cfg.DenyDomains)

	var cands []candidate
	for _, rec := range records {
		key, err := extractor.Extract(rec)
		if err != nil {
			summary.Skipped++
			summary.Skips = append(summary.Skips, model.SkipReason{
				Name:   rec.FullName(),
				Reason: err.Error(),
			})
			continue
		}
		cands = append(cands, candidate{rec: rec, key: key})
	}
	log.Info("identities extracted",
		zap.Int("extracted", summary.Extracted),
		zap.Int("skipped", summary.Skipped))

	// An empty batch is never submitted; the run completes straight from
	// the extracting state.
	if len(cands) == 0 {
		if err := o.store.CompleteRun(ctx, run.ID, summary); err != nil {
			return summary, eris.Wrap(err, "syncrun: complete run")
		}
		return summary, nil
	}

	maxBatch := o.cfg.MaxBatch
	if maxBatch <= 0 || maxBatch > surfe.MaxBatchSize {
		maxBatch = surfe.MaxBatchSize
	}
	if len(cands) > maxBatch {
		log.Warn("batch limit reached",
			zap.Int("limit", maxBatch),
			zap.Int("dropped", len(cands)-maxBatch))
		for _, c := range cands[maxBatch:] {
			summary.Skipped++
			summary.Skips = append(summary.Skips, model.SkipReason{
				Name:   c.rec.FullName(),
				Reason: "batch limit reached",
			})
		}
		cands = cands[:maxBatch]
	}

	req := surfe.EnrichmentRequest{Include: surfe.Include{Email: true, Mobile: true}}
	for i, c := range cands {
		req.People = append(req.People, surfe.Person{
			ExternalID:     externalID(c.rec, i),
			FirstName:      c.rec.FirstName,
			LastName:       c.rec.LastName,
			CompanyName:    c.rec.Company,
			CompanyWebsite: c.key.Domain(),
			LinkedInURL:    c.rec.LinkedInURL,
		})
	}

	if err := o.advance(ctx, run, model.RunStatusSubmitted); err != nil {
		return summary, err
	}
	resp, err := o.enricher.StartEnrichment(ctx, req)
	if err != nil {
		return summary, o.fail(ctx, run, eris.Wrap(err, "syncrun: submit enrichment"))
	}
	summary.Submitted = len(req.People)
	if err := o.store.SetRunJobID(ctx, run.ID, resp.ID); err != nil {
		log.Warn("failed to persist job id", zap.Error(err))
	}

	if err := o.advance(ctx, run, model.RunStatusPolling); err != nil {
		return summary, err
	}
	job, err := surfe.AwaitCompletion(ctx, o.enricher, resp.ID, o.cfg.PollOpts...)
	if err != nil {
		return summary, o.fail(ctx, run, err)
	}
	summary.Enriched = len(job.People)

	if err := o.advance(ctx, run, model.RunStatusReconciling); err != nil {
		return summary, err
	}

	writer := o.target.Writer
	if o.cfg.DryRun {
		writer = dryRunTarget{inner: writer}
	}
	recon := reconcile.New(writer)

	index := make(map[string]int, len(cands))
	for i, c := range cands {
		index[externalID(c.rec, i)] = i
	}

	var memo []store.SyncedEntity
	for i, p := range job.People {
		if ctx.Err() != nil {
			log.Warn("run cancelled during reconciliation",
				zap.Int("processed", i),
				zap.Int("remaining", len(job.People)-i))
			break
		}

		ci, ok := correlate(index, p, i, len(cands))
		if !ok {
			summary.Failed++
			summary.Errors = append(summary.Errors, model.RecordError{
				Key:    p.ExternalID,
				Reason: "result does not correlate to a submitted record",
			})
			continue
		}
		o.processRecord(ctx, recon, cands[ci], p, summary, &memo)
	}

	if len(memo) > 0 && !o.cfg.DryRun {
		if err := o.store.RememberEntities(ctx, memo); err != nil {
			log.Warn("entity memo write failed", zap.Error(err))
		}
	}
	if err := o.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return summary, eris.Wrap(err, "syncrun: complete run")
	}
	log.Info("run complete",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("gated", summary.Gated),
		zap.Int("failed", summary.Failed))

	if ctx.Err() != nil {
		return summary, eris.Wrap(ctx.Err(), "syncrun: cancelled")
	}
	return summary, nil
}

// processRecord merges, scores, gates, and reconciles one enriched result.
// Failures are recorded in the summary, never returned.
func (o *Orchestrator) processRecord(ctx context.Context, recon *reconcile.Reconciler, c candidate, p surfe.EnrichedPerson, summary *model.RunSummary, memo *[]store.SyncedEntity) {
	rec := merge.Merge(c.rec, p)
	if rec.Changed() {
		zap.L().Debug("enrichment merged",
			zap.String("key", c.key.Value),
			zap.Strings("fields", rec.ChangedFields()))
	}
	metrics := model.DerivedMetrics{
		Score:     scoring.Score(rec, o.cfg.Weights),
		DealValue: scoring.DealValue(rec, o.cfg.BaseDealValue, o.cfg.Multipliers, o.cfg.HighValueTopic),
		Owner:     scoring.AssignOwner(rec, o.cfg.Territory, o.cfg.DefaultOwner),
	}

	if metrics.Score < o.cfg.MinScore {
		summary.Gated++
		zap.L().Debug("record gated",
			zap.String("key", c.key.Value),
			zap.Int("score", metrics.Score),
			zap.Int("min_score", o.cfg.MinScore))
		return
	}

	fields := o.target.Mapper.PersonFields(rec, metrics)

	if companyFields := o.target.Mapper.CompanyFields(rec); companyFields != nil {
		res, err := recon.Reconcile(ctx, crm.KindCompany, rec.Domain, companyFields)
		if err != nil {
			o.recordError(summary, c, rec, err)
			return
		}
		o.target.Mapper.LinkCompany(fields, res.TargetID)
		*memo = append(*memo, store.SyncedEntity{
			Kind: crm.KindCompany, Key: rec.Domain, TargetID: res.TargetID,
		})
	}

	res, err := recon.Reconcile(ctx, crm.KindPerson, c.key.Value, fields)
	if err != nil {
		o.recordError(summary, c, rec, err)
		return
	}

	outcome := model.RecordOutcome{
		Key:        c.key.Value,
		ExternalID: c.rec.ExternalID,
		Name:       rec.FullName(),
		Company:    rec.Company,
		Op:         res.Op,
		TargetID:   res.TargetID,
		Score:      metrics.Score,
		DealValue:  metrics.DealValue,
		Owner:      metrics.Owner,
	}
	switch res.Op {
	case model.OpCreated:
		summary.Created++
		summary.TotalValue += metrics.DealValue
	case model.OpUpdated:
		summary.Updated++
	case model.OpUnchanged:
		summary.Unchanged++
	}
	*memo = append(*memo, store.SyncedEntity{
		Kind: crm.KindPerson, Key: c.key.Value, TargetID: res.TargetID,
	})

	// Deals and activities are dependent entities: only a person created
	// in this run gets them, which keeps re-runs from piling up duplicates.
	if o.cfg.CreateDeals && res.Op == model.OpCreated {
		if dealFields := o.target.Mapper.DealFields(rec, metrics, res.TargetID); dealFields != nil {
			dres, err := recon.Reconcile(ctx, crm.KindDeal, c.key.Value, dealFields)
			if err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, model.RecordError{
					Key:    c.key.Value,
					Name:   rec.FullName(),
					Reason: fmt.Sprintf("deal: %s", err),
				})
			} else {
				outcome.DealID = dres.TargetID
				if actFields := o.target.Mapper.ActivityFields(rec, dres.TargetID); actFields != nil {
					if _, err := recon.Reconcile(ctx, crm.KindActivity, c.key.Value, actFields); err != nil {
						zap.L().Warn("follow-up activity failed",
							zap.String("key", c.key.Value),
							zap.Error(err))
					}
				}
			}
		}
	}

	summary.Outcomes = append(summary.Outcomes, outcome)
}

func (o *Orchestrator) recordError(summary *model.RunSummary, c candidate, rec model.EnrichedRecord, err error) {
	summary.Failed++
	summary.Errors = append(summary.Errors, model.RecordError{
		Key:    c.key.Value,
		Name:   rec.FullName(),
		Reason: err.Error(),
	})
	zap.L().Warn("record failed",
		zap.String("key", c.key.Value),
		zap.Error(err))
}

// advance moves the run to the next status, enforcing the monotonic
// transition order.
func (o *Orchestrator) advance(ctx context.Context, run *model.Run, next model.RunStatus) error {
	if !run.Status.CanTransition(next) {
		return eris.Errorf("syncrun: illegal transition %s -> %s", run.Status, next)
	}
	if err := o.store.UpdateRunStatus(ctx, run.ID, next); err != nil {
		return eris.Wrap(err, "syncrun: update run status")
	}
	run.Status = next
	return nil
}

// fail marks the run failed and returns the original error.
func (o *Orchestrator) fail(ctx context.Context, run *model.Run, err error) error {
	if ferr := o.store.FailRun(ctx, run.ID, err.Error()); ferr != nil {
		zap.L().Warn("failed to record run failure", zap.Error(ferr))
	}
	run.Status = model.RunStatusFailed
	return err
}

// externalID is the correlation token sent with each submitted person:
// the source's own ID when present, otherwise the batch position.
func externalID(rec model.SourceRecord, i int) string {
	if rec.ExternalID != "" {
		return rec.ExternalID
	}
	return strconv.Itoa(i)
}

// correlate resolves an enrichment result back to its candidate, by
// ExternalID when the result carries one, else by batch order.
func correlate(index map[string]int, p surfe.EnrichedPerson, pos, n int) (int, bool) {
	if p.ExternalID != "" {
		ci, ok := index[p.ExternalID]
		return ci, ok
	}
	if pos < n {
		return pos, true
	}
	return 0, false
}

// dryRunTarget reads from the real target but performs no writes.
type dryRunTarget struct {
	inner reconcile.Target
}

func (d dryRunTarget) Lookup(ctx context.Context, kind, key string) (*reconcile.Entity, error) {
	return d.inner.Lookup(ctx, kind, key)
}

func (d dryRunTarget) Create(_ context.Context, kind string, _ map[string]any) (string, error) {
	return "dry-run-" + kind, nil
}

func (d dryRunTarget) Update(context.Context, string, string, map[string]any) error {
	return nil
}
