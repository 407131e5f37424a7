package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Tool selection and orchestration engine for code analysis",
	Long: `Kestrel analyzes a task description, selects the right analysis tools
from its catalog, and either runs them directly or orchestrates a
multi-role pipeline for complex work.

Simple tasks run a single execution plan. Complex tasks (or tasks run
with --orchestrate) fan out across specialized roles - architecture,
security, quality, and friends - connected by per-role work queues with
retry and dead-letter handling.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
