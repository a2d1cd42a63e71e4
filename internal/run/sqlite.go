package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relaymind/agentcore/pkg/agentapi"
)

// SQLiteStore implements Store over modernc.org/sqlite, the pure-Go
// driver the teacher's other durable stores reach for when a full
// CockroachDB/Postgres deployment is overkill: one struct wrapping
// *sql.DB, one method per Store operation, adapted to this package's
// CAS-transition contract.
type SQLiteStore struct {
	db *sql.DB
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	status TEXT NOT NULL,
	step_count INTEGER NOT NULL DEFAULT 0,
	max_steps INTEGER NOT NULL DEFAULT 0,
	stop_reason TEXT,
	usage_json TEXT,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL,
	started_at TIMESTAMP,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_agent_id ON runs(agent_id, created_at DESC);
`

// NewSQLiteStore opens (creating if needed) the sqlite database at path
// and ensures the runs table exists. path may be ":memory:" for a
// transient, process-local database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("run: open sqlite: %w", err)
	}
	// modernc.org/sqlite does not support concurrent writers; a single
	// connection avoids SQLITE_BUSY without needing a busy-timeout dance.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createRunsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run: create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, r *agentapi.Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	usageJSON, err := json.Marshal(r.Usage)
	if err != nil {
		return fmt.Errorf("run: marshal usage: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, agent_id, status, step_count, max_steps, stop_reason, usage_json, error_message, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.AgentID, string(r.Status), r.StepCount, r.MaxSteps,
		nullableString(r.StopReason), string(usageJSON), nullableString(r.Error),
		r.CreatedAt, nullTime(r.StartedAt), nullTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("run: create: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*agentapi.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, status, step_count, max_steps, stop_reason, usage_json, error_message, created_at, started_at, completed_at
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("run: get: %w", err)
	}
	return r, nil
}

// UpdateStatus performs the CAS transition as a single statement: the
// WHERE clause only matches a row whose stored status is exactly the
// pre-transition status read moments earlier, so two racing writers
// (the step loop and an external cancellation) can never both succeed
// — the loser's RowsAffected is 0 and it reports ErrInvalidTransition.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, to agentapi.RunStatus, apply func(*agentapi.Run)) (*agentapi.Run, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(before.Status, to) {
		return nil, ErrInvalidTransition
	}

	next := *before
	if apply != nil {
		apply(&next)
	}
	next.Status = to
	if to == agentapi.RunStatusRunning {
		next.StartedAt = time.Now()
	}
	if to.Terminal() {
		next.CompletedAt = time.Now()
	}

	usageJSON, err := json.Marshal(next.Usage)
	if err != nil {
		return nil, fmt.Errorf("run: marshal usage: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, stop_reason = ?, usage_json = ?, error_message = ?, started_at = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`,
		string(next.Status), nullableString(next.StopReason), string(usageJSON),
		nullableString(next.Error), nullTime(next.StartedAt), nullTime(next.CompletedAt),
		id, string(before.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("run: update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("run: rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrInvalidTransition
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) ListByAgent(ctx context.Context, agentID string, limit int) ([]*agentapi.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, status, step_count, max_steps, stop_reason, usage_json, error_message, created_at, started_at, completed_at
		FROM runs WHERE agent_id = ? ORDER BY created_at DESC LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("run: list by agent: %w", err)
	}
	defer rows.Close()

	var out []*agentapi.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("run: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// rowScanner abstracts over *sql.Row and *sql.Rows so scanRun can serve
// both Get and ListByAgent.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*agentapi.Run, error) {
	var (
		r                       agentapi.Run
		status                  string
		stopReason, errMsg      sql.NullString
		usageJSON               sql.NullString
		startedAt, completedAt  sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.AgentID, &status, &r.StepCount, &r.MaxSteps,
		&stopReason, &usageJSON, &errMsg, &r.CreatedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	r.Status = agentapi.RunStatus(status)
	r.StopReason = stopReason.String
	r.Error = errMsg.String
	if startedAt.Valid {
		r.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		r.CompletedAt = completedAt.Time
	}
	if usageJSON.Valid && usageJSON.String != "" {
		_ = json.Unmarshal([]byte(usageJSON.String), &r.Usage)
	}
	return &r, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
