package snap

import (
	"github.com/spf13/cobra"

	"github.com/saadjs/kcal-snap/internal/app"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
			if cmd.Flags().Changed("port") {
				a.Config.App.HTTP.Port = servePort
			}
			return a.Serve(cmd.Context())
		})
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override app.http.port")
	rootCmd.AddCommand(serveCmd)
}
