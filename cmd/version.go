package cmd

import (
	"fmt"

	"github.com/spigell/prep-brief/internal/prep"

	"github.com/spf13/cobra"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s (prompt v%s)\n", app, version, prep.PromptVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
