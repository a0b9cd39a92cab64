package snap

import (
	"github.com/spf13/cobra"

	"github.com/saadjs/kcal-snap/internal/app"
	"github.com/saadjs/kcal-snap/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the tracker as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol, so logs go to stderr.
		return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
			return mcpserver.New(a.Tracker, version).ServeStdio()
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
