package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/overridebot/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/overridebot/internal/domain/port/driven"
)

// historyOptions holds flags for the history command.
type historyOptions struct {
	Database string
	Limit    int
	Format   string // "text" | "json"
}

// newHistoryCommand creates the history command, which lists recorded runs.
func newHistoryCommand() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent override runs",
		Long: `List recent override runs recorded in the SQLite run store, newest first.
The store is only read: it must already exist and carry the schema written
by "run" or "serve".

Examples:
  overridebot history
  overridebot history --limit 5 --format json
  overridebot history --db /data/overridebot.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
			return runHistory(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	defaultDB := os.Getenv("OVERRIDEBOT_DB_PATH")
	if defaultDB == "" {
		defaultDB = "overridebot.db"
	}

	cmd.Flags().StringVar(&opts.Database, "db", defaultDB, "path to SQLite database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	return cmd
}

func runHistory(ctx context.Context, opts *historyOptions, w io.Writer) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return fmt.Errorf("open run store %s: %w", opts.Database, err)
	}

	db, err := sqliteadapter.NewDB(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := sqliteadapter.NewRunRepo(db).ListRuns(ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	printRuns(w, runs)
	return nil
}

// printRuns writes runs as an aligned table.
func printRuns(w io.Writer, runs []driven.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tAGE\tDURATION\tREPO\tPRS\tCANDIDATES\tERRORS\tDRY RUN")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
			r.ID,
			r.StartedAt.UTC().Format(time.RFC3339),
			humanize.Time(r.StartedAt),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Repo,
			r.ChangeRequests,
			r.Candidates,
			r.Failures,
			r.DryRun,
		)
	}
	_ = tw.Flush()
}
