package cmd

import (
	"github.com/spf13/cobra"

	"github.com/makerhub/makerhub/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the instance server",
	Long: `Starts the WebSocket instance server: connects to storage, loads the
Python script template, and listens for client connections.`,
	Run: func(cmd *cobra.Command, args []string) {
		s := server.New()
		s.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
