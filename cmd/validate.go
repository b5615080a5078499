package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/executor"
	"github.com/stagehand-dev/stagehand/internal/pipeline"
	"github.com/stagehand-dev/stagehand/internal/security"
)

var validateCmd = &cobra.Command{
	Use:   "validate [pipeline-file]",
	Short: "Check a pipeline definition without running it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := pipelineArg(args)
		p, err := pipeline.Load(path)
		if err != nil {
			return err
		}
		if _, err := pipeline.Plan(p); err != nil {
			return err
		}

		var warnings int
		for _, s := range p.Stages {
			for _, c := range s.Commands {
				if err := executor.ValidateCommand(executor.Sanitize(c)); err != nil {
					return fmt.Errorf("stage %s: %w", s.Name, err)
				}
			}
			if bad, err := security.CheckStageCommands(s.Commands); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: stage %s: %q: %v\n", s.Name, bad, err)
				warnings++
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d stages, %d legs", path, len(p.Stages), len(p.Matrix.Legs()))
		if warnings > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), ", %d warnings", warnings)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ")")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
