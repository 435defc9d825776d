package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const runsTable = "digest_runs"

const schema = `CREATE TABLE IF NOT EXISTS digest_runs (
    id             UUID PRIMARY KEY,
    started_at     TIMESTAMPTZ NOT NULL,
    finished_at    TIMESTAMPTZ,
    status         TEXT NOT NULL,
    headlines      INTEGER NOT NULL DEFAULT 0,
    selected       INTEGER NOT NULL DEFAULT 0,
    delivered      INTEGER NOT NULL DEFAULT 0,
    failed_sources TEXT[] NOT NULL DEFAULT '{}',
    failures       JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS digest_runs_started_at_idx ON digest_runs (started_at DESC);`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	runColumns    = []string{"id", "started_at", "finished_at", "status", "headlines", "selected", "delivered", "failures"}
	insertColumns = append(append([]string{}, runColumns...), "failed_sources")
)

// PostgresRepository persists digest run reports into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.RunRepository = (*PostgresRepository)(nil)

// Open connects to Postgres and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the runs table when it is missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveRun upserts the run report keyed by its id.
func (r *PostgresRepository) SaveRun(ctx context.Context, report domain.RunReport) error {
	if r.db == nil {
		return nil
	}

	query, args, err := saveRunQuery(report)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit reports, newest first.
func (r *PostgresRepository) RecentRuns(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := recentRunsQuery(limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunReport
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func saveRunQuery(report domain.RunReport) (string, []any, error) {
	failures := report.Failures
	if failures == nil {
		failures = []domain.Failure{}
	}
	encoded, err := json.Marshal(failures)
	if err != nil {
		return "", nil, fmt.Errorf("encode failures: %w", err)
	}

	failedSources := report.FailedSources()
	if failedSources == nil {
		failedSources = []string{}
	}

	query, args, err := psql.Insert(runsTable).
		Columns(insertColumns...).
		Values(
			report.ID,
			report.StartedAt,
			nullTime(report.FinishedAt),
			string(report.Status),
			report.Headlines,
			report.Selected,
			report.Delivered,
			string(encoded),
			pq.Array(failedSources),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            finished_at = EXCLUDED.finished_at,
            status = EXCLUDED.status,
            headlines = EXCLUDED.headlines,
            selected = EXCLUDED.selected,
            delivered = EXCLUDED.delivered,
            failures = EXCLUDED.failures,
            failed_sources = EXCLUDED.failed_sources`).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build upsert: %w", err)
	}
	return query, args, nil
}

func recentRunsQuery(limit int) (string, []any, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := psql.Select(runColumns...).
		From(runsTable).
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select: %w", err)
	}
	return query, args, nil
}

func scanRun(rows *sql.Rows) (domain.RunReport, error) {
	var (
		report   domain.RunReport
		finished sql.NullTime
		status   string
		failures []byte
	)
	if err := rows.Scan(
		&report.ID,
		&report.StartedAt,
		&finished,
		&status,
		&report.Headlines,
		&report.Selected,
		&report.Delivered,
		&failures,
	); err != nil {
		return domain.RunReport{}, fmt.Errorf("scan run: %w", err)
	}

	report.Status = domain.RunStatus(status)
	if finished.Valid {
		report.FinishedAt = finished.Time
	}
	if len(failures) > 0 {
		if err := json.Unmarshal(failures, &report.Failures); err != nil {
			return domain.RunReport{}, fmt.Errorf("decode failures of run %s: %w", report.ID, err)
		}
	}
	return report, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
