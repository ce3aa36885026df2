package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsync-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "zoom", "pipedrive", "idle", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "zoom", "pipedrive")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusIdle, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatus(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("updates", func(t *testing.T) {
		mock.ExpectExec("UPDATE runs SET status").
			WithArgs("polling", pgxmock.AnyArg(), "run-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := s.UpdateRunStatus(context.Background(), "run-1", model.RunStatusPolling)
		require.NoError(t, err)
	})

	t.Run("missing run", func(t *testing.T) {
		mock.ExpectExec("UPDATE runs SET status").
			WithArgs("done", pgxmock.AnyArg(), "run-x").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.UpdateRunStatus(context.Background(), "run-x", model.RunStatusDone)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRunArchivesOutcomes(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE runs SET summary").
		WithArgs(pgxmock.AnyArg(), "done", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCopyFrom(
		pgx.Identifier{"run_outcomes"},
		[]string{"run_id", "key", "op", "target_id", "score", "deal_value", "owner", "created_at"},
	).WillReturnResult(1)

	summary := &model.RunSummary{
		Created: 1,
		Outcomes: []model.RecordOutcome{
			{Key: "ada@acme.io", Op: model.OpCreated, TargetID: "42", Score: 65, DealValue: 15000},
		},
	}
	err := s.CompleteRun(context.Background(), "run-1", summary)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRunNoOutcomes(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE runs SET summary").
		WithArgs(pgxmock.AnyArg(), "done", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", &model.RunSummary{Extracted: 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, source, target, status, job_id, error, summary, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("failed", "enrichment submit: HTTP 500", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FailRun(context.Background(), "run-1", "enrichment submit: HTTP 500")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupEntity(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT target_id FROM synced_entities").
			WithArgs("person", "ada@acme.io").
			WillReturnRows(pgxmock.NewRows([]string{"target_id"}).AddRow("42"))

		id, err := s.LookupEntity(context.Background(), "person", "ada@acme.io")
		require.NoError(t, err)
		assert.Equal(t, "42", id)
	})

	t.Run("absent yields empty", func(t *testing.T) {
		mock.ExpectQuery("SELECT target_id FROM synced_entities").
			WithArgs("person", "nobody@acme.io").
			WillReturnRows(pgxmock.NewRows([]string{"target_id"}))

		id, err := s.LookupEntity(context.Background(), "person", "nobody@acme.io")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRememberEntities(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(
		pgx.Identifier{"_tmp_upsert_synced_entities"},
		[]string{"kind", "key", "target_id", "updated_at"},
	).WillReturnResult(2)
	mock.ExpectExec("INSERT INTO \"synced_entities\"").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.RememberEntities(context.Background(), []SyncedEntity{
		{Kind: "person", Key: "ada@acme.io", TargetID: "42"},
		{Kind: "company", Key: "acme.io", TargetID: "7"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRememberEntitiesEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	err := s.RememberEntities(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
