package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/executor"
	"github.com/stagehand-dev/stagehand/internal/history"
	"github.com/stagehand-dev/stagehand/internal/pipeline"
	"github.com/stagehand-dev/stagehand/internal/report"
	"github.com/stagehand-dev/stagehand/internal/runenv"
	"github.com/stagehand-dev/stagehand/internal/runner"
	"github.com/stagehand-dev/stagehand/internal/secrets"
	"github.com/stagehand-dev/stagehand/internal/watch"
)

// execFactory builds the command runner. Tests swap it for a fake.
var execFactory = func(dry, verbose bool) executor.Runner {
	return executor.New(dry, verbose)
}

var runCmd = &cobra.Command{
	Use:   "run [pipeline-file]",
	Short: "Run the pipeline for all matrix legs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := pipelineArg(args)
		dry, _ := cmd.Flags().GetBool("dry-run")
		verbose, _ := cmd.Flags().GetBool("verbose")
		force, _ := cmd.Flags().GetBool("force")
		shell, _ := cmd.Flags().GetString("shell")
		onlyVersion, _ := cmd.Flags().GetString("version")
		watchMode, _ := cmd.Flags().GetBool("watch")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		rc := runenv.Detect()
		if cmd.Flags().Changed("pull-request") {
			rc.PullRequest, _ = cmd.Flags().GetBool("pull-request")
		}
		if v, _ := cmd.Flags().GetString("branch"); v != "" {
			rc.Branch = v
		}
		if cmd.Flags().Changed("tag") {
			rc.Tag, _ = cmd.Flags().GetString("tag")
		}

		opts := runner.Options{Force: force}
		if shell != "" {
			opts.Exec = &executor.Executor{DryRun: dry, Verbose: verbose, Shell: shell}
		} else {
			opts.Exec = execFactory(dry, verbose)
		}

		record := !dry && !noHistory

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		runOnce := func() error {
			return runPipeline(ctx, cmd, path, rc, onlyVersion, opts, record)
		}

		if !watchMode {
			return runOnce()
		}

		if err := runOnce(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "run failed: %v\n", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "watching %s for changes (interrupt to stop)\n", path)
		return watch.File(ctx, path, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s changed, re-running\n", path)
			if err := runOnce(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "run failed: %v\n", err)
			}
		})
	},
}

func runPipeline(ctx context.Context, cmd *cobra.Command, path string, rc pipeline.Context, onlyVersion string, opts runner.Options, record bool) error {
	p, err := pipeline.Load(path)
	if err != nil {
		return err
	}
	if onlyVersion != "" {
		if !containsVersion(p.Matrix.Legs(), onlyVersion) {
			return fmt.Errorf("version %s is not a matrix leg of %s", onlyVersion, p.Name)
		}
		p.Matrix.Versions = []string{onlyVersion}
	}
	plan, err := pipeline.Plan(p)
	if err != nil {
		return err
	}
	opts.Vault = secrets.NewVault(p.Env.Secure)

	results, runErr := runner.RunMatrix(ctx, p, plan, rc, opts, cmd.OutOrStdout())

	if record {
		if err := recordResults(cmd, p.Name, rc, results); err != nil {
			return err
		}
	}
	return runErr
}

func recordResults(cmd *cobra.Command, name string, rc pipeline.Context, results []runner.LegResult) error {
	dbConn, err := history.InitDB()
	if err != nil {
		return err
	}
	defer func() { _ = dbConn.Close() }()
	repo := history.NewRepository(dbConn)

	reportsDir, err := config.ReportsDir()
	if err != nil {
		return err
	}

	for _, res := range results {
		id, err := repo.StartRun(name, res.Version, rc.Branch, rc.Tag, rc.PullRequest)
		if err != nil {
			return err
		}
		for _, sr := range res.Stages {
			rec := history.StageResult{
				Position:   sr.Position,
				Stage:      sr.Stage,
				Status:     sr.Status,
				ExitCode:   sr.ExitCode,
				Remapped:   sr.Remapped,
				DurationMS: sr.Duration.Milliseconds(),
			}
			if sr.SkipReason != "" {
				rec.SkipReason.String, rec.SkipReason.Valid = sr.SkipReason, true
			}
			if _, err := repo.AddStageResult(id, rec); err != nil {
				return err
			}
		}
		if err := repo.FinishRun(id, res.Status); err != nil {
			return err
		}

		summary := report.FromLeg(id, name, res, report.RunContext{
			Branch:      rc.Branch,
			Tag:         rc.Tag,
			PullRequest: rc.PullRequest,
		})
		path, err := report.Write(reportsDir, summary)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "leg %s recorded as %s (%s)\n", res.Version, res.Status, path)
	}
	return nil
}

func containsVersion(legs []string, v string) bool {
	for _, l := range legs {
		if l == v {
			return true
		}
	}
	return false
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "Do not actually execute commands")
	runCmd.Flags().Bool("verbose", false, "Verbose output (prints dry-run messages)")
	runCmd.Flags().Bool("force", false, "Override safety checks and force execution")
	runCmd.Flags().String("shell", "", "Shell override for commands (e.g. pwsh, sh -e)")
	runCmd.Flags().String("version", "", "Run a single matrix leg")
	runCmd.Flags().Bool("pull-request", false, "Treat this run as a pull request run")
	runCmd.Flags().String("branch", "", "Branch for the run context")
	runCmd.Flags().String("tag", "", "Tag for the run context")
	runCmd.Flags().Bool("watch", false, "Re-run when the pipeline file changes")
	runCmd.Flags().Bool("no-history", false, "Do not record the run")
	rootCmd.AddCommand(runCmd)
}
