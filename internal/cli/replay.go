package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/harness"
	"github.com/roach88/strata/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - compare against one run only
}

// ReplayRunResult compares one recorded run with the replay.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Recorded      string `json:"recorded"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Scenario         string            `json:"scenario"`
	Fingerprint      string            `json:"fingerprint"`
	Runs             []ReplayRunResult `json:"runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Re-run a scenario and verify it matches recorded runs",
		Long: `Re-run a scenario in memory and compare its trace fingerprint with the
runs of the same scenario recorded in a journal.

Fingerprints hash the ordered trace without layer IDs, so a match means the
runtime made the same decisions in the same order.

Exit codes:
  0 - All compared runs match
  1 - At least one run differs
  2 - Command error (journal not found, no matching runs, etc.)

Examples:
  strata replay --db ./runs.db ./scenarios/counter.yaml
  strata replay --db ./runs.db --run first ./scenarios/mood.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "compare against this run only")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	recorded, err := recordedRuns(ctx, opts, scenario.Name)
	if err != nil {
		return err
	}

	result, err := harness.Run(scenario,
		harness.WithMaxAttempts(opts.Config.MaxAttempts),
		harness.WithLogger(opts.Logger(formatter.GetErrWriter())),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay scenario", err)
	}

	replay := ReplayResult{
		Scenario:         scenario.Name,
		Fingerprint:      result.Fingerprint,
		Runs:             make([]ReplayRunResult, 0, len(recorded)),
		AllDeterministic: true,
	}
	for _, r := range recorded {
		same := r.Fingerprint == result.Fingerprint
		replay.Runs = append(replay.Runs, ReplayRunResult{
			RunID:         r.ID,
			Recorded:      r.Fingerprint,
			Deterministic: same,
		})
		if !same {
			replay.AllDeterministic = false
		}
		formatter.VerboseLog("run %s: recorded=%s replayed=%s", r.ID, r.Fingerprint, result.Fingerprint)
	}

	msg := fmt.Sprintf("replay of %s differs from a recorded run", scenario.Name)
	if opts.Format == "json" {
		if !replay.AllDeterministic {
			return formatter.Failure(ErrCodeMismatch, msg, replay)
		}
		return formatter.Success(replay)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Replayed %s (fingerprint %s)\n", scenario.Name, truncateID(result.Fingerprint))
	for _, r := range replay.Runs {
		fmt.Fprintf(w, "  %s %s\n", passMark(r.Deterministic), r.RunID)
	}
	if !replay.AllDeterministic {
		return NewExitError(ExitFailure, msg)
	}
	fmt.Fprintln(w, "✓ Deterministic")
	return nil
}

// recordedRuns returns the runs to compare against: the one named by --run,
// or every run of the scenario.
func recordedRuns(ctx context.Context, opts *ReplayOptions, scenario string) ([]journal.Run, error) {
	js, err := journal.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer js.Close()

	runs, err := js.Runs(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	var out []journal.Run
	for _, r := range runs {
		if opts.RunID != "" && r.ID != opts.RunID {
			continue
		}
		if opts.RunID == "" && r.Name != scenario {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		if opts.RunID != "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("run %q not found", opts.RunID))
		}
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("no recorded runs of %s", scenario))
	}
	return out, nil
}
