package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "makerhub",
	Short: "MakerHub instance server",
	Long: `MakerHub runs collaborative instances that wire physical input and
output devices together through user-authored Python handlers.

Available commands:
  serve    Start the instance server

Use "makerhub [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
