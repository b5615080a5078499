package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret <value>",
	Short: "Encrypt a value for the env.secure section of a pipeline file",
	Long:  "Encrypt a value with the key material from " + secrets.EnvKey + " and " + secrets.EnvIV + " and print the base64 blob for env.secure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := secrets.EncryptFromEnv(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), blob)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
}
