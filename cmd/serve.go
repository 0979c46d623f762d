package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/north-cloud/sourcing/internal/app"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"both", "all"},
	Short:   "Run the API server and worker pool in one process",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(cmd.Context(), app.Options{
			ConfigPath: cfgFile,
			Version:    Version,
		})
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer application.Close()

		return application.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
