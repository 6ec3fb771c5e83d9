package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

const schemaLockID = 7743100421

// OpenDB opens a pgx-backed pool through database/sql and verifies
// connectivity before handing it out.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// OutcomeRepository persists completed retrieval sessions.
type OutcomeRepository struct {
	db *sql.DB
}

func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// EnsureSchema creates the journal table. An advisory transaction lock
// serializes concurrent instances racing to migrate at startup.
func (r *OutcomeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS retrieval_outcomes (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			tier TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			complexity TEXT NOT NULL,
			model_hint TEXT NOT NULL DEFAULT '',
			hit_count INTEGER NOT NULL,
			hits JSONB NOT NULL DEFAULT '[]'::jsonb,
			trail JSONB NOT NULL DEFAULT '[]'::jsonb,
			started_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_retrieval_outcomes_started_at
			ON retrieval_outcomes (started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_retrieval_outcomes_status
			ON retrieval_outcomes (status)`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const insertOutcomeQuery = `
	INSERT INTO retrieval_outcomes
		(id, query, status, tier, confidence, complexity, model_hint, hit_count, hits, trail, started_at, duration_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO NOTHING`

func (r *OutcomeRepository) Record(ctx context.Context, outcome *domain.RetrievalOutcome) error {
	if outcome == nil {
		return fmt.Errorf("record outcome: outcome is nil")
	}

	hitsJSON, err := json.Marshal(outcome.Hits)
	if err != nil {
		return fmt.Errorf("marshal outcome hits: %w", err)
	}
	trailJSON, err := json.Marshal(outcome.Trail)
	if err != nil {
		return fmt.Errorf("marshal outcome trail: %w", err)
	}

	_, err = r.db.ExecContext(ctx, insertOutcomeQuery,
		outcome.ID,
		outcome.Query,
		string(outcome.Status),
		outcome.Tier.String(),
		outcome.Confidence,
		string(outcome.Complexity),
		outcome.ModelHint,
		len(outcome.Hits),
		hitsJSON,
		trailJSON,
		outcome.StartedAt,
		outcome.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome %s: %w", outcome.ID, err)
	}
	return nil
}

const selectOutcomeColumns = `
	id, query, status, tier, confidence, complexity, model_hint, hits, trail, started_at, duration_ms`

func (r *OutcomeRepository) GetByID(ctx context.Context, id string) (*domain.RetrievalOutcome, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+selectOutcomeColumns+` FROM retrieval_outcomes WHERE id = $1`, id)

	outcome, err := scanOutcome(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrOutcomeNotFound, "get outcome", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("get outcome %s: %w", id, err)
	}
	return outcome, nil
}

func (r *OutcomeRepository) ListRecent(ctx context.Context, limit int) ([]domain.RetrievalOutcome, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT`+selectOutcomeColumns+` FROM retrieval_outcomes ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]domain.RetrievalOutcome, 0, limit)
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, *outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutcome(row rowScanner) (*domain.RetrievalOutcome, error) {
	var (
		outcome    domain.RetrievalOutcome
		status     string
		tier       string
		complexity string
		hitsJSON   []byte
		trailJSON  []byte
		durationMS int64
	)
	if err := row.Scan(
		&outcome.ID,
		&outcome.Query,
		&status,
		&tier,
		&outcome.Confidence,
		&complexity,
		&outcome.ModelHint,
		&hitsJSON,
		&trailJSON,
		&outcome.StartedAt,
		&durationMS,
	); err != nil {
		return nil, err
	}

	outcome.Status = domain.OutcomeStatus(status)
	outcome.Complexity = domain.Complexity(complexity)
	outcome.Duration = time.Duration(durationMS) * time.Millisecond
	if parsed, ok := domain.ParseTier(tier); ok {
		outcome.Tier = parsed
	}
	if err := json.Unmarshal(hitsJSON, &outcome.Hits); err != nil {
		return nil, fmt.Errorf("unmarshal hits: %w", err)
	}
	if err := json.Unmarshal(trailJSON, &outcome.Trail); err != nil {
		return nil, fmt.Errorf("unmarshal trail: %w", err)
	}
	return &outcome, nil
}
