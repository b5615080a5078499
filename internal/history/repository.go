package history

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Repository provides CRUD operations for runs and stage results.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository using db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StartRun inserts a new run in the running state and returns its ID.
func (r *Repository) StartRun(pipeline, version, branch, tag string, pullRequest bool) (string, error) {
	pipeline = strings.TrimSpace(pipeline)
	if pipeline == "" {
		return "", fmt.Errorf("invalid pipeline name: cannot be empty")
	}
	id := uuid.NewString()
	_, err := r.db.Exec(`INSERT INTO runs (id, pipeline, version, branch, tag, pull_request, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
		id, pipeline, version, nullable(branch), nullable(tag), boolInt(pullRequest), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run finished with the given status.
func (r *Repository) FinishRun(id, status string) error {
	res, err := r.db.Exec("UPDATE runs SET status = ?, finished_at = datetime('now') WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// AddStageResult records the outcome of one stage within a run.
func (r *Repository) AddStageResult(runID string, sr StageResult) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO stage_results (run_id, position, stage, status, exit_code, remapped, skip_reason, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, sr.Position, sr.Stage, sr.Status, sr.ExitCode, boolInt(sr.Remapped), sr.SkipReason, sr.DurationMS)
	if err != nil {
		return 0, fmt.Errorf("insert stage result: %w", err)
	}
	return res.LastInsertId()
}

// GetRun retrieves a run and its stage results by ID. Returns nil when the
// run does not exist.
func (r *Repository) GetRun(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT id, pipeline, version, branch, tag, pull_request, status, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachStages(run); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the most recently started run for a pipeline, or nil
// when none is recorded. An empty pipeline matches any.
func (r *Repository) LatestRun(pipeline string) (*Run, error) {
	q := `SELECT id, pipeline, version, branch, tag, pull_request, status, started_at, finished_at
		FROM runs`
	args := []interface{}{}
	if pipeline != "" {
		q += " WHERE pipeline = ?"
		args = append(args, pipeline)
	}
	q += " ORDER BY started_at DESC, rowid DESC LIMIT 1"
	run, err := scanRun(r.db.QueryRow(q, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns recorded runs, latest first. version filters to one
// matrix leg when non-empty; limit <= 0 means no limit.
func (r *Repository) ListRuns(limit int, version string) ([]Run, error) {
	q := `SELECT id, pipeline, version, branch, tag, pull_request, status, started_at, finished_at FROM runs`
	args := []interface{}{}
	if version != "" {
		q += " WHERE version = ?"
		args = append(args, version)
	}
	q += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (r *Repository) attachStages(run *Run) error {
	rows, err := r.db.Query(`SELECT id, run_id, position, stage, status, exit_code, remapped, skip_reason, duration_ms
		FROM stage_results WHERE run_id = ? ORDER BY position ASC`, run.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var sr StageResult
		var remapped int
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.Position, &sr.Stage, &sr.Status, &sr.ExitCode, &remapped, &sr.SkipReason, &sr.DurationMS); err != nil {
			return err
		}
		sr.Remapped = remapped != 0
		run.Stages = append(run.Stages, sr)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var pr int
	if err := row.Scan(&run.ID, &run.Pipeline, &run.Version, &run.Branch, &run.Tag, &pr, &run.Status, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	run.PullRequest = pr != 0
	return &run, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
