package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/history"
	"github.com/stagehand-dev/stagehand/internal/report"
)

var badgeCmd = &cobra.Command{
	Use:   "badge",
	Short: "Write an SVG status badge for the latest recorded run",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		pipelineName, _ := cmd.Flags().GetString("pipeline")

		dbConn, err := history.InitDB()
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()

		run, err := history.NewRepository(dbConn).LatestRun(pipelineName)
		if err != nil {
			return err
		}
		status := "unknown"
		if run != nil {
			status = run.Status
		}
		if err := report.WriteBadge(out, status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s badge to %s\n", status, out)
		return nil
	},
}

func init() {
	badgeCmd.Flags().StringP("output", "o", "build.svg", "Badge file to write")
	badgeCmd.Flags().String("pipeline", "", "Limit to one pipeline name")
	rootCmd.AddCommand(badgeCmd)
}
