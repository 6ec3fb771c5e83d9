package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

func newMockRepo(t *testing.T) (*OutcomeRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewOutcomeRepository(db), mock
}

func sampleOutcome() *domain.RetrievalOutcome {
	return &domain.RetrievalOutcome{
		ID:         "session-1",
		Query:      "golang testing",
		Status:     domain.OutcomeAccepted,
		Tier:       domain.TierSemantic,
		Confidence: 0.91,
		Complexity: domain.ComplexityMedium,
		ModelHint:  "standard",
		Hits: []domain.SearchHit{
			{Title: "Go testing", URL: "https://go.dev/doc/testing", Tier: domain.TierSemantic},
		},
		Trail: []domain.TierAttempt{
			{Tier: domain.TierFree, Confidence: 0.4, HitCount: 2},
			{Tier: domain.TierSemantic, Confidence: 0.91, HitCount: 1},
		},
		StartedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}
}

func TestRecordInsertsOutcome(t *testing.T) {
	repo, mock := newMockRepo(t)
	outcome := sampleOutcome()

	mock.ExpectExec("INSERT INTO retrieval_outcomes").
		WithArgs(
			outcome.ID,
			outcome.Query,
			string(outcome.Status),
			"semantic",
			outcome.Confidence,
			string(outcome.Complexity),
			outcome.ModelHint,
			1,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			outcome.StartedAt,
			int64(1500),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Record(context.Background(), outcome); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecordRejectsNilOutcome(t *testing.T) {
	repo, _ := newMockRepo(t)
	if err := repo.Record(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil outcome")
	}
}

func outcomeRows(outcome *domain.RetrievalOutcome) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "query", "status", "tier", "confidence", "complexity",
		"model_hint", "hits", "trail", "started_at", "duration_ms",
	}).AddRow(
		outcome.ID,
		outcome.Query,
		string(outcome.Status),
		outcome.Tier.String(),
		outcome.Confidence,
		string(outcome.Complexity),
		outcome.ModelHint,
		[]byte(`[{"title":"Go testing","url":"https://go.dev/doc/testing","engine":"","tier":1}]`),
		[]byte(`[{"tier":0,"confidence":0.4,"hit_count":2,"duration":0},{"tier":1,"confidence":0.91,"hit_count":1,"duration":0}]`),
		outcome.StartedAt,
		outcome.Duration.Milliseconds(),
	)
}

func TestGetByIDRoundTrip(t *testing.T) {
	repo, mock := newMockRepo(t)
	want := sampleOutcome()

	mock.ExpectQuery("SELECT .+ FROM retrieval_outcomes WHERE id").
		WithArgs(want.ID).
		WillReturnRows(outcomeRows(want))

	got, err := repo.GetByID(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != want.ID || got.Status != want.Status || got.Tier != want.Tier {
		t.Fatalf("got %+v", got)
	}
	if got.Duration != want.Duration {
		t.Fatalf("duration = %v, want %v", got.Duration, want.Duration)
	}
	if len(got.Hits) != 1 || len(got.Trail) != 2 {
		t.Fatalf("hits=%d trail=%d", len(got.Hits), len(got.Trail))
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .+ FROM retrieval_outcomes WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrOutcomeNotFound) {
		t.Fatalf("error = %v, want ErrOutcomeNotFound", err)
	}
}

func TestListRecent(t *testing.T) {
	repo, mock := newMockRepo(t)
	outcome := sampleOutcome()

	mock.ExpectQuery("SELECT .+ FROM retrieval_outcomes ORDER BY started_at DESC").
		WithArgs(5).
		WillReturnRows(outcomeRows(outcome))

	got, err := repo.ListRecent(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != outcome.ID {
		t.Fatalf("got %+v", got)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS retrieval_outcomes").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_retrieval_outcomes_started_at").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_retrieval_outcomes_status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
