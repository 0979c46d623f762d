// Package cmd implements the command-line interface for the sourcing
// service: the API server, the queue worker, and a combined mode.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version can be set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "sourcing",
		Short: "LinkedIn candidate sourcing pipeline",
		Long: `Sourcing finds, extracts, and scores LinkedIn candidates for a job
description, and drafts outreach messages for the ones that fit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yml)")
}
