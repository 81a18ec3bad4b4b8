package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS artifacts (
	stage      TEXT PRIMARY KEY,
	rows       TEXT NOT NULL,
	report     TEXT NOT NULL,
	complete   INTEGER NOT NULL DEFAULT 0,
	written_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) HasArtifact(ctx context.Context, stage string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM artifacts WHERE stage = ? AND complete = 1`,
		stage,
	)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: has artifact %s", stage)
	}
	return true, nil
}

func (s *SQLiteStore) LoadArtifact(ctx context.Context, stage string) (*model.StageArtifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT stage, rows, report FROM artifacts WHERE stage = ? AND complete = 1`,
		stage,
	)

	var a model.StageArtifact
	var rowsJSON, reportJSON string
	err := row.Scan(&a.Stage, &rowsJSON, &reportJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrArtifactNotFound, "stage %s", stage)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load artifact %s", stage)
	}

	a.Rows = []byte(rowsJSON)
	if err := json.Unmarshal([]byte(reportJSON), &a.Report); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal report %s", stage)
	}
	return &a, nil
}

// SaveArtifact replaces the stage's artifact in one transaction. The complete
// flag is only ever written together with the rows, so readers never observe a
// partially written artifact.
func (s *SQLiteStore) SaveArtifact(ctx context.Context, artifact *model.StageArtifact) error {
	reportJSON, err := json.Marshal(artifact.Report)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal report %s", artifact.Stage)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save artifact")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM artifacts WHERE stage = ?`, artifact.Stage,
	); err != nil {
		return eris.Wrapf(err, "sqlite: delete artifact %s", artifact.Stage)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO artifacts (stage, rows, report, complete, written_at) VALUES (?, ?, ?, 1, ?)`,
		artifact.Stage, string(artifact.Rows), string(reportJSON), time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert artifact %s", artifact.Stage)
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit artifact %s", artifact.Stage)
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.PipelineRun, error) {
	run := &model.PipelineRun{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, run *model.PipelineRun) error {
	summaryJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), string(summaryJSON), run.FinishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.PipelineRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.PipelineRun, error) {
	query := `SELECT id, status, summary, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.PipelineRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.PipelineRun, error) {
	var id string
	var status string
	var summaryJSON sql.NullString
	var startedAt time.Time
	var finishedAt sql.NullTime

	err := row.Scan(&id, &status, &summaryJSON, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	// The summary column carries the full run once it finishes; running rows
	// only have the skeleton columns.
	if summaryJSON.Valid {
		var r model.PipelineRun
		if err := json.Unmarshal([]byte(summaryJSON.String), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run summary")
		}
		return &r, nil
	}

	r := &model.PipelineRun{
		ID:        id,
		Status:    model.RunStatus(status),
		StartedAt: startedAt,
	}
	if finishedAt.Valid {
		r.FinishedAt = finishedAt.Time
	}
	return r, nil
}
