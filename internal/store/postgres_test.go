package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/practice-audit/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "dr-silva", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.Subject{Name: "Dr. Silva"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	subjectJSON, _ := json.Marshal(model.Subject{Name: "Dr. Silva", Locality: "Recife"})
	resultJSON, _ := json.Marshal(model.RunResult{CostUSD: 0.02})
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, subject, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "subject", "status", "result", "created_at", "updated_at"}).
			AddRow("run-1", subjectJSON, model.RunStatusComplete, &resultJSON, now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Recife", run.Subject.Locality)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.InDelta(t, 0.02, run.Result.CostUSD, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, subject, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET result`).
		WithArgs(pgxmock.AnyArg(), "failed", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateRunResult(context.Background(), "run-1", model.RunStatusFailed,
		&model.RunResult{FailedPhase: "sales_pitch", Error: "contract: malformed"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	subjectJSON, _ := json.Marshal(model.Subject{Name: "Dr. Silva"})
	now := time.Now().UTC()

	mock.ExpectQuery(`AND status = \$1 AND subject_slug = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("complete", "dr-silva", 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "subject", "status", "result", "created_at", "updated_at"}).
			AddRow("run-1", subjectJSON, model.RunStatusComplete, nil, now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{
		Status:  model.RunStatusComplete,
		Subject: "dr-silva",
		Limit:   10,
		Offset:  20,
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Phases(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO run_phases`).
		WithArgs(pgxmock.AnyArg(), "run-1", "sales_pitch", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	phase, err := s.CreatePhase(ctx, "run-1", "sales_pitch")
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE run_phases SET status`).
		WithArgs("complete", pgxmock.AnyArg(), phase.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompletePhase(ctx, phase.ID, &model.PhaseResult{Status: model.PhaseStatusComplete}))

	resultJSON, _ := json.Marshal(model.PhaseResult{Status: model.PhaseStatusComplete, DurationMs: 2400})
	mock.ExpectQuery(`SELECT id, run_id, name, status, result, started_at FROM run_phases`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "run_id", "name", "status", "result", "started_at"}).
			AddRow(phase.ID, "run-1", "sales_pitch", model.PhaseStatusComplete, &resultJSON, time.Now()))

	phases, err := s.ListPhases(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.Equal(t, int64(2400), phases[0].Result.DurationMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
