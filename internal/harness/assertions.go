package harness

import (
	"bytes"
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"

	"github.com/roach88/strata/internal/canon"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/state"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Trace    []engine.Entry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", entry)
		}
	}
	return buf.String()
}

// assertResult checks the root's latest resolved value.
func assertResult(result *Result, assertion Assertion) error {
	if valuesEqual(result.Value, assertion.Expect) {
		return nil
	}
	return &AssertionError{
		Type:     AssertResult,
		Expected: render(assertion.Expect),
		Actual:   render(result.Value),
		Trace:    result.Trace,
	}
}

// assertStore reads a key through a layer's store chain. A local key is
// read by its bare name.
func assertStore(result *Result, root *engine.Layer, assertion Assertion) error {
	l, err := locateFrom(root, assertion.Layer)
	if err != nil {
		return err
	}
	actual, ok := l.Store().Get(state.Bare(assertion.Key))
	if ok && valuesEqual(actual, assertion.Expect) {
		return nil
	}
	got := "<absent>"
	if ok {
		got = render(actual)
	}
	return &AssertionError{
		Type:     AssertStore,
		Expected: fmt.Sprintf("%s[%s] = %s", l, assertion.Key, render(assertion.Expect)),
		Actual:   got,
		Trace:    result.Trace,
	}
}

// assertJournalCount checks the number of trace entries of a kind.
func assertJournalCount(result *Result, assertion Assertion) error {
	count := result.Counts()[assertion.Kind]
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertJournalCount,
		Expected: fmt.Sprintf("%d %s entries", assertion.Count, assertion.Kind),
		Actual:   fmt.Sprintf("%d entries", count),
		Trace:    result.Trace,
	}
}

// assertEvents compares the demo watcher log.
func assertEvents(result *Result, assertion Assertion) error {
	events := make([]any, len(result.Events))
	for i, e := range result.Events {
		events[i] = e
	}
	expect := assertion.Expect
	if expect == nil {
		expect = []any{}
	}
	if valuesEqual(events, expect) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEvents,
		Expected: render(expect),
		Actual:   render(events),
	}
}

// assertExpr evaluates a boolean expression over the result.
//
// Variables: result (root value), store (root store flattened through its
// ancestors), tree (snapshot map), events (watcher log) and counts (trace
// entries per kind).
func assertExpr(result *Result, root *engine.Layer, assertion Assertion) error {
	env := exprEnv(result, root)
	program, err := exprlang.Compile(assertion.Expr,
		exprlang.Env(env),
		exprlang.AsBool(),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return fmt.Errorf("expr %q: %w", assertion.Expr, err)
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return fmt.Errorf("expr %q: %w", assertion.Expr, err)
	}
	if ok, _ := out.(bool); ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertExpr,
		Expected: assertion.Expr,
		Actual:   "false",
		Trace:    result.Trace,
	}
}

func exprEnv(result *Result, root *engine.Layer) map[string]any {
	counts := make(map[string]any)
	for k, n := range result.Counts() {
		counts[k] = n
	}
	events := make([]any, len(result.Events))
	for i, e := range result.Events {
		events[i] = e
	}
	store := map[string]any{}
	if root != nil {
		store = root.Store().Flatten()
	}
	return map[string]any{
		"result": result.Value,
		"store":  store,
		"tree":   result.Tree,
		"events": events,
		"counts": counts,
	}
}

// locateFrom walks a child index path from root; see Harness.locate.
func locateFrom(root *engine.Layer, path string) (*engine.Layer, error) {
	h := &Harness{root: root}
	return h.locate(path)
}

// valuesEqual compares values by canonical encoding, so int, int64 and
// integral float64 agree and map key order is irrelevant.
func valuesEqual(actual, expected any) bool {
	a, err := canon.Marshal(actual)
	if err != nil {
		return false
	}
	b, err := canon.Marshal(expected)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func render(v any) string {
	data, err := canon.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions checks all assertions against the result.
// Returns a list of error messages (empty if all pass).
func EvaluateAssertions(result *Result, assertions []Assertion, root *engine.Layer) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertResult:
			err = assertResult(result, assertion)
		case AssertStore:
			err = assertStore(result, root, assertion)
		case AssertExpr:
			err = assertExpr(result, root, assertion)
		case AssertJournalCount:
			err = assertJournalCount(result, assertion)
		case AssertEvents:
			err = assertEvents(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
