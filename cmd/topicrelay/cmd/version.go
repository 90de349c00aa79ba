package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/topicrelay/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of topicrelay",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "topicrelay %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
