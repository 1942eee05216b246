package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
)

// newRunCommand creates the run command, a single pass over all open pull requests.
func newRunCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one override pass and exit",
		Long: `Run one override pass over every open pull request and exit.

Exits non-zero when the forge could not be reached at all. Failures on
individual pull requests are reported but do not fail the command.

Examples:
  overridebot run
  overridebot run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.service.RunOnce(cmd.Context())
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "format override comments without posting them")

	return cmd
}

// printReport writes a human-readable summary of one run.
func printReport(w io.Writer, report *model.RunReport) {
	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Run %d on %s%s: %d pull requests, %d override candidates, %d errors\n",
		report.ID, report.Repo, mode, len(report.Outcomes), report.CandidateCount(), report.FailedCount())

	for _, o := range report.Outcomes {
		switch {
		case o.Err != nil:
			fmt.Fprintf(w, "  #%d %s: error: %v\n", o.Number, o.Title, o.Err)
		case len(o.Candidates) == 0:
			continue
		default:
			status := "posted"
			if !o.Posted {
				status = "not posted"
			}
			fmt.Fprintf(w, "  #%d %s: %d overrides, %s\n", o.Number, o.Title, len(o.Candidates), status)
			for _, c := range o.Candidates {
				fmt.Fprintf(w, "    %s (%s)\n", c.Lane.Name, c.Lane.Result)
			}
		}
	}
}
