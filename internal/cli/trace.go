package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to one entry kind
}

// TraceResult holds the trace of one run.
type TraceResult struct {
	RunID       string         `json:"run_id"`
	Scenario    string         `json:"scenario"`
	Fingerprint string         `json:"fingerprint"`
	Timeline    []engine.Entry `json:"timeline"`
	Stats       map[string]int `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journal of a recorded run",
		Long: `Show what a recorded run did, in order.

Without --run, lists the runs in the journal. With --run, prints the
timeline of entries (resolve, attempt, interrupt, cancel, queued, update,
emit, complete, failed) and per-kind counts.

Examples:
  strata trace --db ./runs.db
  strata trace --db ./runs.db --run counter-0190...
  strata trace --db ./runs.db --run first --kind interrupt --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter timeline to one entry kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	js, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer js.Close()

	runs, err := js.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.RunID == "" {
		if opts.Format == "json" {
			return formatter.Success(runs)
		}
		writeRunList(cmd.OutOrStdout(), runs)
		return nil
	}

	run, ok := findRun(runs, opts.RunID)
	if !ok {
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run %q not found", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run %q not found", opts.RunID))
	}

	entries, err := js.Entries(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}

	result := TraceResult{
		RunID:       run.ID,
		Scenario:    run.Name,
		Fingerprint: run.Fingerprint,
		Timeline:    filterEntries(entries, opts.Kind),
		Stats:       countKinds(entries),
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	writeTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

func findRun(runs []journal.Run, id string) (journal.Run, bool) {
	for _, r := range runs {
		if r.ID == id {
			return r, true
		}
	}
	return journal.Run{}, false
}

func filterEntries(entries []engine.Entry, kind string) []engine.Entry {
	if kind == "" {
		return entries
	}
	out := []engine.Entry{}
	for _, e := range entries {
		if string(e.Kind) == kind {
			out = append(out, e)
		}
	}
	return out
}

func countKinds(entries []engine.Entry) map[string]int {
	stats := make(map[string]int)
	for _, e := range entries {
		stats[string(e.Kind)]++
	}
	return stats
}

func writeRunList(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in journal.")
		return
	}
	fmt.Fprintln(w, "=== Runs ===")
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %s  %s\n", r.ID, r.Name, truncateID(r.Fingerprint))
	}
}

func writeTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Run: %s (%s)\n", result.RunID, result.Scenario)
	if verbose {
		fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  %s\n", e)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	kinds := make([]string, 0, len(result.Stats))
	for k := range result.Stats {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-10s %d\n", k+":", result.Stats[k])
	}
}
