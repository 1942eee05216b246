package main

import (
	"github.com/spf13/cobra"
)

// newRootCommand creates the overridebot command tree.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overridebot",
		Short: "Override redundant CI lane failures",
		Long: `overridebot watches the open pull requests of one GitHub repository.
When a Prow test group passed on one cloud provider, it posts /override
directives for the sibling lanes that failed, errored or are still pending.

Configuration is read from OVERRIDEBOT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newHistoryCommand())

	return cmd
}
