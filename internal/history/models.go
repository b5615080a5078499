package history

import "database/sql"

// Run statuses recorded in the database.
const (
	StatusPassed   = "passed"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
	StatusRunning  = "running"
)

// Run is one recorded matrix leg execution.
type Run struct {
	ID          string
	Pipeline    string
	Version     string
	Branch      sql.NullString
	Tag         sql.NullString
	PullRequest bool
	Status      string
	StartedAt   string
	FinishedAt  sql.NullString
	Stages      []StageResult
}

// StageResult is the recorded outcome of a single stage within a run.
type StageResult struct {
	ID         int64
	RunID      string
	Position   int
	Stage      string
	Status     string
	ExitCode   int
	Remapped   bool
	SkipReason sql.NullString
	DurationMS int64
}
