package surfe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxWait      = 5 * time.Minute
)

// ErrTimedOut is returned by AwaitCompletion when the job did not reach a
// terminal state within the wait budget, or the context was cancelled.
var ErrTimedOut = errors.New("surfe: enrichment timed out")

// IsTimeout reports whether err is (or wraps) ErrTimedOut.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimedOut)
}

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	maxWait  time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		interval: defaultPollInterval,
		maxWait:  defaultMaxWait,
	}
}

// WithPollInterval overrides the delay between status checks.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxWait overrides the total wait budget.
func WithMaxWait(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// AwaitCompletion polls GetEnrichment at a fixed interval until the job
// reaches a terminal state or the wait budget is exhausted.
//
// On COMPLETED the returned job carries the enriched people and a nil
// error. On FAILED the job status is JobFailed and the error describes the
// failure. When the budget runs out or ctx is cancelled the job is forced
// to JobTimedOut and the error wraps ErrTimedOut; a job that completes on
// the service after the deadline is still reported as timed out. Status
// transitions on the returned job are monotonic: once terminal, later
// observations cannot change it.
func AwaitCompletion(ctx context.Context, client Client, id string, opts ...PollOption) (*Job, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	job := &Job{
		ID:          id,
		Status:      JobSubmitted,
		SubmittedAt: time.Now(),
	}

	deadline := time.NewTimer(cfg.maxWait)
	defer deadline.Stop()

	log := zap.L().With(zap.String("enrichment_id", id))

	for {
		// Cancellation and budget are checked before each status query so a
		// late COMPLETED can never override a timeout.
		select {
		case <-ctx.Done():
			job.transition(JobTimedOut)
			return job, eris.Wrap(ErrTimedOut, ctx.Err().Error())
		case <-deadline.C:
			job.transition(JobTimedOut)
			return job, eris.Wrap(ErrTimedOut, fmt.Sprintf("wait budget %s exhausted", cfg.maxWait))
		default:
		}

		status, err := client.GetEnrichment(ctx, id)
		if err != nil {
			return job, eris.Wrap(err, fmt.Sprintf("surfe: poll enrichment %s", id))
		}
		job.transition(JobPolling)

		switch status.Status {
		case statusCompleted:
			job.transition(JobCompleted)
			job.People = status.People
			return job, nil
		case statusFailed:
			job.transition(JobFailed)
			return job, eris.Errorf("surfe: enrichment %s failed: %s", id, status.Error)
		case statusInProgress:
			log.Debug("surfe: enrichment in progress")
		default:
			// Unknown statuses keep polling until the wait budget runs out.
			log.Warn("surfe: unrecognized enrichment status", zap.String("status", status.Status))
		}

		select {
		case <-ctx.Done():
			job.transition(JobTimedOut)
			return job, eris.Wrap(ErrTimedOut, ctx.Err().Error())
		case <-deadline.C:
			job.transition(JobTimedOut)
			return job, eris.Wrap(ErrTimedOut, fmt.Sprintf("wait budget %s exhausted", cfg.maxWait))
		case <-time.After(cfg.interval):
		}
	}
}
