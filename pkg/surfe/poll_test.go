package surfe

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient implements Client for testing the poller.
type mockClient struct {
	getFunc func(ctx context.Context, id string) (*EnrichmentStatus, error)
}

func (m *mockClient) StartEnrichment(context.Context, EnrichmentRequest) (*EnrichmentResponse, error) {
	return nil, nil
}

func (m *mockClient) GetEnrichment(ctx context.Context, id string) (*EnrichmentStatus, error) {
	return m.getFunc(ctx, id)
}

func (m *mockClient) SearchByEmail(context.Context, string) (*SearchResult, error) {
	return nil, nil
}

func TestAwaitCompletion_CompletesImmediately(t *testing.T) {
	mock := &mockClient{
		getFunc: func(ctx context.Context, id string) (*EnrichmentStatus, error) {
			return &EnrichmentStatus{
				Status: "COMPLETED",
				People: []EnrichedPerson{{FirstName: "Jane", JobTitle: "CEO"}},
			}, nil
		},
	}

	job, err := AwaitCompletion(context.Background(), mock, "enr-123",
		WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Len(t, job.People, 1)
	assert.Equal(t, "enr-123", job.ID)
	assert.False(t, job.SubmittedAt.IsZero())
}

func TestAwaitCompletion_CompletesAfterRetries(t *testing.T) {
	var calls atomic.Int32
	mock := &mockClient{
		getFunc: func(ctx context.Context, id string) (*EnrichmentStatus, error) {
			if calls.Add(1) < 3 {
				return &EnrichmentStatus{Status: "IN_PROGRESS"}, nil
			}
			return &EnrichmentStatus{
				Status: "COMPLETED",
				People: []EnrichedPerson{{FirstName: "Jane"}, {FirstName: "Joe"}},
			}, nil
		},
	}

	job, err := AwaitCompletion(context.Background(), mock, "enr-456",
		WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Len(t, job.People, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAwaitCompletion_UnrecognizedStatusKeepsPolling(t *testing.T) {
	var calls atomic.Int32
	mock := &mockClient{
		getFunc: func(ctx context.Context, id string) (*EnrichmentStatus, error) {
			if calls.Add(1) == 1 {
				return &EnrichmentStatus{Status: "QUEUED"}, nil
			}
			return &EnrichmentStatus{Status: "COMPLETED"}, nil
		},
	}

	job, err := AwaitCompletion(context.Background(), mock, "enr-789",
		WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAwaitCompletion_TimedOut(t *testing.T) {
	mock := &mockClient{
		getFunc: func(ctx context.Context, id string) (*EnrichmentStatus, error) {
			return &EnrichmentStatus{Status: "IN_PROGRESS"}, nil
		},
	}

	job, err := AwaitCompletion(context.Background(), mock, "enr-slow",
		WithPollInterval(10*time.Millisecond),
		WithMaxWait(35*time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, JobTimedOut, job.Status)
	assert.Empty(t, job.People)
}

// A job that becomes COMPLETED on the service after the deadline must still
// be reported as timed out, never promoted to completed.
func TestAwaitCompletion_LateCompletionStaysTimedOut(t *testing.T) {
	var calls atomic.Int32
	mock := &mockClient{
		getFunc: func(ctx context.Context, id string) (*EnrichmentStatus, error) {
			if calls.Add(1) == 1 {
				return &EnrichmentStatus{Status: "IN_PROGRESS"}, nil
			}
			return &EnrichmentStatus{Status: "COMPLETED", People: []EnrichedPerson{{}}}, nil
		},
	}

	// Budget expires during the first sleep; the second (completed) status
	// is never fetched.
	job, err := AwaitCompletion(context.Background(), mock, "enr-late",
		WithPollInterval(50*time.Millisecond),
		WithMaxWait(20*time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, JobTimedOut, job.Status)
	assert.Empty(t, job.People)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAwaitCompletion_Cancelled(t *testing.T) {
	mock := &mockClient{
		getFunc: func(ctx context.Context, id string) (*EnrichmentStatus, error) {
			return &EnrichmentStatus{Status: "IN_PROGRESS"}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job, err := AwaitCompletion(ctx, mock, "enr-cancel",
		WithPollInterval(10*time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, JobTimedOut, job.Status)
}

func TestAwaitCompletion_Failed(t *testing.T) {
	mock := &mockClient{
		getFunc: func(ctx context.Context, id string) (*EnrichmentStatus, error) {
			return &EnrichmentStatus{Status: "FAILED", Error: "bad batch"}, nil
		},
	}

	job, err := AwaitCompletion(context.Background(), mock, "enr-fail",
		WithPollInterval(10*time.Millisecond),
	)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimedOut)
	assert.Contains(t, err.Error(), "bad batch")
	assert.Equal(t, JobFailed, job.Status)
}

func TestJob_TransitionMonotonic(t *testing.T) {
	j := &Job{Status: JobSubmitted}
	j.transition(JobPolling)
	assert.Equal(t, JobPolling, j.Status)

	j.transition(JobTimedOut)
	assert.Equal(t, JobTimedOut, j.Status)

	// Terminal states are sticky.
	j.transition(JobCompleted)
	assert.Equal(t, JobTimedOut, j.Status)
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobTimedOut.Terminal())
	assert.False(t, JobSubmitted.Terminal())
	assert.False(t, JobPolling.Terminal())
}
