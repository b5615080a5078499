package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "stagehand",
	Short: "stagehand is a staged pipeline runner with a version matrix",
	Long:  "stagehand runs the staged shell commands of a pipeline definition, once per matrix leg, with condition-gated publish and deploy stages",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("stagehand: run 'stagehand --help' to see available commands")
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// pipelineArg resolves the optional pipeline file argument.
func pipelineArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return pipeline.DefaultFile
}
