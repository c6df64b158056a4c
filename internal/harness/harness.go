package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	exprlang "github.com/expr-lang/expr"

	"github.com/roach88/strata/internal/demo"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/journal"
	"github.com/roach88/strata/internal/testutil"
	"github.com/roach88/strata/internal/unwind"
)

// DefaultStepTimeout bounds how long a resolve step waits for deferred
// values to settle.
const DefaultStepTimeout = 5 * time.Second

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and sequential layer IDs.
type Harness struct {
	rt      *engine.Runtime
	root    *engine.Layer
	logger  *slog.Logger
	timeout time.Duration
	result  *Result
	tracked bool
}

type config struct {
	journalPath string
	runID       string
	maxAttempts int
	logger      *slog.Logger
	timeout     time.Duration
	metrics     *engine.Metrics
}

// Option configures a harness run.
type Option func(*config)

// WithJournalPath records the run into the SQLite journal at path instead of
// a throwaway in-memory database.
func WithJournalPath(path string) Option {
	return func(c *config) {
		c.journalPath = path
	}
}

// WithRunID sets the journal run ID. Defaults to the scenario name.
func WithRunID(id string) Option {
	return func(c *config) {
		c.runID = id
	}
}

// WithMaxAttempts sets the runtime's per-resolve attempt limit.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithLogger sets the runtime logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics publishes the run's runtime counters through m.
func WithMetrics(m *engine.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithStepTimeout bounds each resolve step.
func WithStepTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Open the journal and begin a run
// 2. Build the demo catalog and root layer
// 3. Execute steps in order, draining the loop after each
// 4. Collect value, tree, watcher events and trace
// 5. Evaluate assertions
//
// A returned error means the scenario could not be executed at all; step and
// assertion failures are reported through Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		journalPath: ":memory:",
		runID:       scenario.Name,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:     DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	js, err := journal.Open(cfg.journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer js.Close()

	ctx := context.Background()
	if err := js.BeginRun(ctx, cfg.runID, scenario.Name); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}

	catalog := demo.NewCatalog()
	comp, ok := catalog.Lookup(scenario.Component)
	if !ok {
		return nil, fmt.Errorf("unknown component %q (known: %s)",
			scenario.Component, strings.Join(catalog.Names(), ", "))
	}

	rt := engine.New(
		engine.WithJournal(js.Recorder(ctx, cfg.runID)),
		engine.WithIDGenerator(testutil.NewSequentialIDs("layer")),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithMaxAttempts(cfg.maxAttempts),
		engine.WithLogger(cfg.logger),
		engine.WithMetrics(cfg.metrics),
	)
	defer rt.Stop()

	h := &Harness{
		rt:      rt,
		root:    rt.Use(comp, scenario.Store, scenario.Args...),
		logger:  cfg.logger,
		timeout: cfg.timeout,
		result:  NewResult(),
	}

	for i, step := range scenario.Steps {
		err := h.execute(ctx, step)
		rt.Drain()
		checkStepError(h.result, i, step, err)
	}

	h.result.Tree = engine.Snap(h.root).Map()
	h.result.Events = catalog.Log().Events()

	trace, err := js.Entries(ctx, cfg.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	h.result.Trace = trace

	fp, err := js.Seal(ctx, cfg.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to seal run: %w", err)
	}
	h.result.Fingerprint = fp

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, h.root) {
		h.result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", h.result.Pass,
		"entries", len(trace),
	)
	return h.result, nil
}

// Check reports problems Run would only hit at execution time: an unknown
// component or an expr assertion that does not compile.
func Check(scenario *Scenario) []string {
	var problems []string

	catalog := demo.NewCatalog()
	if _, ok := catalog.Lookup(scenario.Component); !ok {
		problems = append(problems, fmt.Sprintf("unknown component %q (known: %s)",
			scenario.Component, strings.Join(catalog.Names(), ", ")))
	}

	env := exprEnv(NewResult(), nil)
	for i, a := range scenario.Assertions {
		if a.Type != AssertExpr {
			continue
		}
		if _, err := exprlang.Compile(a.Expr, exprlang.Env(env), exprlang.AllowUndefinedVariables()); err != nil {
			problems = append(problems, fmt.Sprintf("assertions[%d]: expr %q: %v", i, a.Expr, err))
		}
	}
	return problems
}

// execute runs one step against its target layer.
func (h *Harness) execute(ctx context.Context, step Step) error {
	target, err := h.locate(step.Layer)
	if err != nil {
		return err
	}

	switch step.Action {
	case StepResolve:
		return h.resolve(ctx, target)
	case StepSet:
		return target.Update(step.Key, step.Value)
	case StepMerge:
		return target.Merge(step.Values)
	case StepDrain:
		h.rt.Drain()
		return nil
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// resolve renders target and waits for its value. The root's first resolve
// also subscribes to later update-driven results.
func (h *Harness) resolve(ctx context.Context, target *engine.Layer) error {
	fut, err := h.resolveTracked(target)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	v, err := h.rt.Await(ctx, fut)
	if err != nil {
		return err
	}
	if target == h.root {
		h.result.Value = v
	}
	return nil
}

func (h *Harness) resolveTracked(target *engine.Layer) (*unwind.Future, error) {
	if target != h.root || h.tracked {
		return target.Resolve()
	}
	h.tracked = true
	return target.Resolve(func(o engine.Outcome) {
		if o.Err == nil {
			h.result.Value = o.Value
		}
	})
}

// locate walks a child index path such as "0/1" from the root.
func (h *Harness) locate(path string) (*engine.Layer, error) {
	l := h.root
	if path == "" {
		return l, nil
	}
	for _, part := range strings.Split(path, "/") {
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("layer path %q: invalid index %q", path, part)
		}
		children := l.Children()
		if i < 0 || i >= len(children) {
			return nil, fmt.Errorf("layer path %q: %s has %d children", path, l, len(children))
		}
		l = children[i]
	}
	return l, nil
}

// checkStepError reconciles a step's error with its expect_error clause.
func checkStepError(result *Result, index int, step Step, err error) {
	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step[%d] %s: unexpected error: %v", index, step.Action, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step[%d] %s: expected error containing %q, got none",
			index, step.Action, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("step[%d] %s: expected error containing %q, got %v",
			index, step.Action, step.ExpectError, err))
	}
}
