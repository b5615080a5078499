package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/stagehand-dev/stagehand/internal/pipeline"
)

// RunMatrix executes the plan once per matrix leg, legs in parallel. With
// fast_finish the first failing leg cancels the remaining ones; otherwise
// every leg runs to completion and the first error is reported after all
// finish. Each leg writes to its own buffer; output is flushed to out
// leg by leg once all legs are done, so legs never interleave.
func RunMatrix(ctx context.Context, p *pipeline.Pipeline, plan []pipeline.Stage, base pipeline.Context, opts Options, out io.Writer) ([]LegResult, error) {
	legs := p.Matrix.Legs()
	results := make([]LegResult, len(legs))
	buffers := make([]bytes.Buffer, len(legs))

	runOne := func(ctx context.Context, i int, version string) error {
		rc := base
		rc.Version = version
		legOpts := opts
		legOpts.Stdout = &buffers[i]
		results[i] = RunLeg(ctx, plan, p.Env, rc, legOpts)
		return results[i].Err
	}

	var waitErr error
	if p.Matrix.FastFinish {
		g, gctx := errgroup.WithContext(ctx)
		for i, v := range legs {
			i, v := i, v
			g.Go(func() error { return runOne(gctx, i, v) })
		}
		waitErr = g.Wait()
	} else {
		var g errgroup.Group
		for i, v := range legs {
			i, v := i, v
			g.Go(func() error { return runOne(ctx, i, v) })
		}
		waitErr = g.Wait()
	}

	for i, res := range results {
		_, _ = fmt.Fprintf(out, "=== leg %s: %s\n", res.Version, res.Status)
		_, _ = out.Write(buffers[i].Bytes())
	}
	return results, waitErr
}
