// Package runner executes a resolved pipeline plan: stages sequentially
// within a leg, legs in parallel across the version matrix.
package runner

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/stagehand-dev/stagehand/internal/executor"
	"github.com/stagehand-dev/stagehand/internal/pipeline"
	"github.com/stagehand-dev/stagehand/internal/secrets"
	"github.com/stagehand-dev/stagehand/internal/security"
)

// Stage statuses.
const (
	StageOK       = "ok"
	StageFailed   = "failed"
	StageSkipped  = "skipped"
	StageCanceled = "canceled"
)

// Leg statuses.
const (
	LegPassed   = "passed"
	LegFailed   = "failed"
	LegCanceled = "canceled"
)

// StageResult is the outcome of one stage within a leg.
type StageResult struct {
	Stage      string
	Position   int
	Status     string
	ExitCode   int
	Remapped   bool
	SkipReason string
	Duration   time.Duration
}

// LegResult is the outcome of one matrix leg.
type LegResult struct {
	Version    string
	Status     string
	Stages     []StageResult
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Options configure stage execution.
type Options struct {
	Exec   executor.Runner
	Vault  *secrets.Vault
	Force  bool // skip the destructive-command scan
	Stdout io.Writer
}

// RunLeg executes the plan for a single matrix leg, strictly in order. Any
// command failure aborts the leg, except exit codes the stage explicitly
// remaps to success. A gated stage that does not fire is recorded as
// skipped and never fails the leg.
func RunLeg(ctx context.Context, plan []pipeline.Stage, env pipeline.Env, rc pipeline.Context, opts Options) LegResult {
	res := LegResult{Version: rc.Version, StartedAt: time.Now()}
	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}

	for i, stage := range plan {
		pos := i + 1

		if ctx.Err() != nil {
			res.Stages = append(res.Stages, StageResult{
				Stage: stage.Name, Position: pos, Status: StageCanceled, SkipReason: "run canceled",
			})
			continue
		}

		if fire, reason := stage.Fires(rc); !fire {
			_, _ = fmt.Fprintf(out, "-- skipping stage %s (%s)\n", stage.Name, reason)
			res.Stages = append(res.Stages, StageResult{
				Stage: stage.Name, Position: pos, Status: StageSkipped, SkipReason: reason,
			})
			continue
		}

		sr := runStage(ctx, stage, pos, env, opts, out)
		res.Stages = append(res.Stages, sr)
		if sr.Status == StageCanceled {
			res.Err = ctx.Err()
			continue
		}
		if sr.Status == StageFailed {
			res.Err = errors.Errorf("stage %s failed", stage.Name)
			break
		}
	}

	res.FinishedAt = time.Now()
	res.Status = legStatus(res, ctx)
	return res
}

func runStage(ctx context.Context, stage pipeline.Stage, pos int, env pipeline.Env, opts Options, out io.Writer) StageResult {
	sr := StageResult{Stage: stage.Name, Position: pos, Status: StageOK}
	start := time.Now()
	defer func() { sr.Duration = time.Since(start) }()

	_, _ = fmt.Fprintf(out, "== stage %s\n", stage.Name)

	cmdEnv, err := stageEnv(stage, env, opts.Vault)
	if err != nil {
		_, _ = fmt.Fprintf(out, "stage %s: %v\n", stage.Name, err)
		sr.Status = StageFailed
		return sr
	}

	for _, c := range stage.Commands {
		if !opts.Force {
			if err := security.CheckCommand(c); err != nil {
				_, _ = fmt.Fprintf(out, "refusing to run %q: %v (use --force to override)\n", c, err)
				sr.Status = StageFailed
				return sr
			}
		}
		_, _ = fmt.Fprintf(out, "-> %s\n", c)

		err := opts.Exec.Execute(ctx, c, "", cmdEnv, out, out)
		if err == nil {
			continue
		}
		if code, ok := executor.ExitCode(err); ok && stage.Allows(code) {
			_, _ = fmt.Fprintf(out, "exit code %d remapped to success\n", code)
			sr.ExitCode = code
			sr.Remapped = true
			continue
		}
		if ctx.Err() != nil {
			sr.Status = StageCanceled
			sr.SkipReason = "run canceled"
			return sr
		}
		_, _ = fmt.Fprintf(out, "stage %s: %v\n", stage.Name, err)
		if code, ok := executor.ExitCode(err); ok {
			sr.ExitCode = code
		}
		sr.Status = StageFailed
		return sr
	}
	return sr
}

// stageEnv assembles the environment for a firing stage: all global entries
// plus any secure variable the stage's commands reference. Secrets are
// revealed lazily so a missing key handle only fails runs that need it.
func stageEnv(stage pipeline.Stage, env pipeline.Env, vault *secrets.Vault) ([]string, error) {
	out := append([]string(nil), env.Global...)
	if vault == nil || len(env.Secure) == 0 {
		return out, nil
	}
	names := make([]string, 0, len(env.Secure))
	for name := range env.Secure {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !stageReferences(stage, name) {
			continue
		}
		val, err := vault.Reveal(name)
		if err != nil {
			return nil, err
		}
		out = append(out, name+"="+val)
	}
	return out, nil
}

func stageReferences(stage pipeline.Stage, name string) bool {
	for _, c := range stage.Commands {
		if strings.Contains(c, "$"+name) ||
			strings.Contains(c, "${"+name+"}") ||
			strings.Contains(c, "%"+name+"%") {
			return true
		}
	}
	return false
}

func legStatus(res LegResult, ctx context.Context) string {
	for _, sr := range res.Stages {
		if sr.Status == StageCanceled {
			return LegCanceled
		}
	}
	if res.Err != nil {
		return LegFailed
	}
	if ctx.Err() != nil {
		return LegCanceled
	}
	return LegPassed
}
