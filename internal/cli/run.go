package cli

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/canon"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	RunID    string
	Metrics  bool
}

// RunReport is the outcome of one scenario run.
type RunReport struct {
	Scenario    string         `json:"scenario"`
	RunID       string         `json:"run_id"`
	Pass        bool           `json:"pass"`
	Value       any            `json:"value,omitempty"`
	Tree        map[string]any `json:"tree"`
	Events      []string       `json:"events"`
	Entries     int            `json:"entries"`
	Fingerprint string             `json:"fingerprint"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Errors      []string           `json:"errors,omitempty"`
}

func (r RunReport) String() string {
	return fmt.Sprintf("%s %s (%d entries, fingerprint %s)",
		passMark(r.Pass), r.Scenario, r.Entries, truncateID(r.Fingerprint))
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and record its journal",
		Long: `Run a scenario against the demo components.

Every resolve, attempt, interrupt, cancel, update and emit is recorded to the
journal. With --metrics the runtime's Prometheus counters are collected
and included in the report. With --db (or "journal" in the config file) the journal is a SQLite
file that trace and replay can read later; otherwise it lives in memory.

Exit codes:
  0 - Scenario passed
  1 - A step or assertion failed
  2 - Command error (unreadable scenario, journal not writable, etc.)

Examples:
  strata run ./scenarios/counter.yaml
  strata run --db ./runs.db --run-id first ./scenarios/mood.yaml
  strata run --format json ./scenarios/list.yaml
  strata run --metrics ./scenarios/counter.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (defaults to config journal, else in-memory)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "journal run ID (defaults to <scenario>-<uuid>)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "collect runtime counters and include them in the report")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	db := opts.Database
	if db == "" {
		db = opts.Config.Journal
	}
	if db == "" {
		db = ":memory:"
	}

	runID := opts.RunID
	if runID == "" {
		runID = scenario.Name + "-" + engine.UUIDv7Generator{}.Generate()
	}

	var registry *prometheus.Registry
	var metrics *engine.Metrics
	if opts.Metrics {
		registry = prometheus.NewRegistry()
		metrics = engine.NewMetrics(registry)
	}

	formatter.VerboseLog("running %s (journal=%s, run=%s)", scenario.Name, db, runID)
	result, err := harness.Run(scenario,
		harness.WithJournalPath(db),
		harness.WithRunID(runID),
		harness.WithMaxAttempts(opts.Config.MaxAttempts),
		harness.WithLogger(opts.Logger(formatter.GetErrWriter())),
		harness.WithMetrics(metrics),
	)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	report := RunReport{
		Scenario:    scenario.Name,
		RunID:       runID,
		Pass:        result.Pass,
		Value:       result.Value,
		Tree:        result.Tree,
		Events:      result.Events,
		Entries:     len(result.Trace),
		Fingerprint: result.Fingerprint,
		Errors:      result.Errors,
	}
	if registry != nil {
		report.Metrics, err = gatherCounters(registry)
		if err != nil {
			_ = formatter.Error(ErrCodeMetrics, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
	}

	if opts.Format == "json" {
		if !report.Pass {
			return formatter.Failure(ErrCodeFailed,
				fmt.Sprintf("scenario %s failed with %d error(s)", scenario.Name, len(report.Errors)), report)
		}
		return formatter.Success(report)
	}

	writeRunText(cmd.OutOrStdout(), report, opts.Verbose)
	if !report.Pass {
		return NewExitError(ExitFailure,
			fmt.Sprintf("scenario %s failed with %d error(s)", scenario.Name, len(report.Errors)))
	}
	return nil
}

func writeRunText(w io.Writer, r RunReport, verbose bool) {
	fmt.Fprintln(w, r)
	fmt.Fprintf(w, "  value: %s\n", formatValue(r.Value))
	if verbose {
		fmt.Fprintf(w, "  run:   %s\n", r.RunID)
		fmt.Fprintf(w, "  tree:  %s\n", formatValue(r.Tree))
		for _, e := range r.Events {
			fmt.Fprintf(w, "  event: %s\n", e)
		}
	}
	for _, name := range sortedMetricNames(r.Metrics) {
		fmt.Fprintf(w, "  metric: %s %g\n", name, r.Metrics[name])
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// formatValue renders a value as canonical JSON so maps print in a stable
// order.
func formatValue(v any) string {
	data, err := canon.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func passMark(pass bool) string {
	if pass {
		return "✓"
	}
	return "✗"
}

// truncateID shortens long IDs and fingerprints for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
