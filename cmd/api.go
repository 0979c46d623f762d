package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/north-cloud/sourcing/internal/app"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(cmd.Context(), app.Options{
			ConfigPath: cfgFile,
			Version:    Version,
		})
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer application.Close()

		return application.RunAPI(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}
