package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/pipeline"
	"github.com/stagehand-dev/stagehand/internal/runenv"
)

var describeCmd = &cobra.Command{
	Use:   "describe [pipeline-file]",
	Short: "Show the resolved execution plan per matrix leg",
	Long:  "Show the stage order for each matrix leg under the current run context, marking gated stages that would be skipped and why",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := pipelineArg(args)
		p, err := pipeline.Load(path)
		if err != nil {
			return err
		}
		plan, err := pipeline.Plan(p)
		if err != nil {
			return err
		}

		rc := runenv.Detect()
		if cmd.Flags().Changed("pull-request") {
			rc.PullRequest, _ = cmd.Flags().GetBool("pull-request")
		}
		if v, _ := cmd.Flags().GetString("tag"); v != "" {
			rc.Tag = v
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pipeline %s: %d stages, fast_finish=%v\n", p.Name, len(plan), p.Matrix.FastFinish)
		for _, version := range p.Matrix.Legs() {
			legCtx := rc
			legCtx.Version = version
			fmt.Fprintf(out, "leg %s:\n", version)
			for _, stage := range plan {
				if fire, reason := stage.Fires(legCtx); !fire {
					fmt.Fprintf(out, "  %s (skipped: %s)\n", stage.Name, reason)
					continue
				}
				suffix := ""
				if len(stage.AllowExitCodes) > 0 {
					suffix = fmt.Sprintf(" (allows exit codes %v)", stage.AllowExitCodes)
				}
				fmt.Fprintf(out, "  %s%s\n", stage.Name, suffix)
			}
		}
		return nil
	},
}

func init() {
	describeCmd.Flags().Bool("pull-request", false, "Describe the plan for a pull request run")
	describeCmd.Flags().String("tag", "", "Describe the plan for a tagged run")
	rootCmd.AddCommand(describeCmd)
}
