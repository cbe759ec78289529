package main

import (
	"github.com/spf13/cobra"

	"github.com/gluk-w/claworc/launchpad-ai/internal/config"
	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "launchpad-ai",
		Short:        "AI generation service for the landing page builder",
		Long:         "launchpad-ai serves AI copy, style, section and page suggestions with per-account quota and cost tracking.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newPlansCmd(),
		newUsageCmd(),
	)
	return rootCmd
}

// openDB loads configuration and opens the database for one-shot commands.
func openDB() (func(), error) {
	config.Load()
	if err := database.Init(); err != nil {
		return nil, err
	}
	return func() { database.Close() }, nil
}
