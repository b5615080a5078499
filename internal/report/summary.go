// Package report writes run artifacts: a JSON summary per leg and an SVG
// status badge.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/stagehand-dev/stagehand/internal/runner"
)

// Summary is the JSON document written for one recorded leg.
type Summary struct {
	RunID       string         `json:"run_id"`
	Pipeline    string         `json:"pipeline"`
	Version     string         `json:"version"`
	Branch      string         `json:"branch,omitempty"`
	Tag         string         `json:"tag,omitempty"`
	PullRequest bool           `json:"pull_request"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Stages      []StageSummary `json:"stages"`
}

// StageSummary is one stage entry in the summary document.
type StageSummary struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	ExitCode   int    `json:"exit_code,omitempty"`
	Remapped   bool   `json:"remapped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// FromLeg builds a summary from a leg result. Secure values never appear in
// leg results, so summaries are safe to persist.
func FromLeg(runID, pipelineName string, res runner.LegResult, rc RunContext) Summary {
	s := Summary{
		RunID:       runID,
		Pipeline:    pipelineName,
		Version:     res.Version,
		Branch:      rc.Branch,
		Tag:         rc.Tag,
		PullRequest: rc.PullRequest,
		Status:      res.Status,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
	}
	for _, sr := range res.Stages {
		s.Stages = append(s.Stages, StageSummary{
			Stage:      sr.Stage,
			Status:     sr.Status,
			ExitCode:   sr.ExitCode,
			Remapped:   sr.Remapped,
			SkipReason: sr.SkipReason,
			DurationMS: sr.Duration.Milliseconds(),
		})
	}
	return s
}

// RunContext carries the context fields recorded alongside a summary.
type RunContext struct {
	Branch      string
	Tag         string
	PullRequest bool
}

// Write stores the summary as <dir>/<run-id>.json and returns the path.
func Write(dir string, s Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create reports dir")
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode summary")
	}
	path := filepath.Join(dir, s.RunID+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", errors.Wrap(err, "write summary")
	}
	return path, nil
}
