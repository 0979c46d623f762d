package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/north-cloud/sourcing/internal/app"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background job worker pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(cmd.Context(), app.Options{
			ConfigPath: cfgFile,
			Version:    Version,
		})
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer application.Close()

		return application.RunWorker(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
