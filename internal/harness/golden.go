package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/strata/internal/canon"
	"github.com/roach88/strata/internal/engine"
)

// GoldenSnapshot captures everything a scenario run observably produced.
// Sequence numbers and layer IDs are left out of trace lines so the snapshot
// reads as behaviour rather than bookkeeping.
func GoldenSnapshot(scenarioName string, result *Result) map[string]any {
	events := make([]any, len(result.Events))
	for i, e := range result.Events {
		events[i] = e
	}
	return map[string]any{
		"scenario": scenarioName,
		"value":    result.Value,
		"tree":     result.Tree,
		"events":   events,
		"trace":    traceLines(result.Trace),
	}
}

// MarshalGolden encodes the golden snapshot as indented canonical JSON.
func MarshalGolden(scenarioName string, result *Result) ([]byte, error) {
	return canon.Indent(GoldenSnapshot(scenarioName, result))
}

// traceLines renders entries as "kind component [key] [detail]".
func traceLines(trace []engine.Entry) []any {
	lines := make([]any, len(trace))
	for i, e := range trace {
		parts := []string{string(e.Kind), e.Component}
		if e.Key != "" {
			parts = append(parts, e.Key)
		}
		if e.Detail != "" {
			parts = append(parts, e.Detail)
		}
		lines[i] = strings.Join(parts, " ")
	}
	return lines
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalGolden(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
