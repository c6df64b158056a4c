package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/journal"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

// =============================================================================
// Scenario Execution Tests
// =============================================================================

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"counter", "mood", "list_reorder", "theme_cancel", "later_deferred"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestdata(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.NotEmpty(t, result.Trace)
			assert.Len(t, result.Fingerprint, 64)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadTestdata(t, "list_reorder")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Tree, second.Tree)
}

func TestRun_UnknownComponent(t *testing.T) {
	scenario := &Scenario{
		Name:       "ghost",
		Component:  "ghost",
		Steps:      []Step{{Action: StepResolve}},
		Assertions: []Assertion{{Type: AssertResult}},
	}
	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown component "ghost"`)
}

func TestRun_StepErrors(t *testing.T) {
	scenario := &Scenario{
		Name:      "bad_path",
		Component: "mood",
		Steps: []Step{
			{Action: StepResolve},
			{Action: StepSet, Layer: "3", Key: "mood", Value: "x"},
			{Action: StepSet, Layer: "x", Key: "mood", Value: "x", ExpectError: "invalid index"},
		},
		Assertions: []Assertion{{Type: AssertResult, Expect: "sad"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step[1] set: unexpected error")
	assert.Contains(t, result.Errors[0], "has 0 children")
}

func TestRun_MissingExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:       "no_error",
		Component:  "mood",
		Steps:      []Step{{Action: StepResolve, ExpectError: "boom"}},
		Assertions: []Assertion{{Type: AssertResult, Expect: "sad"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected error containing "boom", got none`)
}

func TestRun_AttemptLimit(t *testing.T) {
	scenario := &Scenario{
		Name:      "runaway",
		Component: "counter",
		Store:     map[string]any{"target": 50},
		Steps:     []Step{{Action: StepResolve, ExpectError: "ATTEMPT_LIMIT"}},
		Assertions: []Assertion{
			{Type: AssertJournalCount, Kind: "failed", Count: 1},
		},
	}

	result, err := Run(scenario, WithMaxAttempts(10))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Nil(t, result.Value)
}

func TestRun_PersistsToJournalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	result, err := Run(loadTestdata(t, "theme_cancel"), WithJournalPath(path), WithRunID("run-1"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	js, err := journal.Open(path)
	require.NoError(t, err)
	defer js.Close()

	runs, err := js.Runs(t.Context())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "theme_cancel", runs[0].Name)
	assert.Equal(t, result.Fingerprint, runs[0].Fingerprint)

	n, err := js.Count(t.Context(), "run-1", "")
	require.NoError(t, err)
	assert.Equal(t, len(result.Trace), n)
}

// =============================================================================
// Golden Tests
// =============================================================================

func TestGolden_Counter(t *testing.T) {
	result, err := RunWithGolden(t, loadTestdata(t, "counter"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGolden_Mood(t *testing.T) {
	result, err := RunWithGolden(t, loadTestdata(t, "mood"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestCheck(t *testing.T) {
	assert.Empty(t, Check(loadTestdata(t, "list_reorder")))

	problems := Check(&Scenario{
		Component: "ghost",
		Assertions: []Assertion{
			{Type: AssertExpr, Expr: "result =="},
			{Type: AssertExpr, Expr: "counts.attempt > 1"},
		},
	})
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], `unknown component "ghost"`)
	assert.Contains(t, problems[1], "assertions[0]")
}

func TestMarshalGolden_Stable(t *testing.T) {
	result, err := Run(loadTestdata(t, "theme_cancel"))
	require.NoError(t, err)

	a, err := MarshalGolden("theme_cancel", result)
	require.NoError(t, err)
	b, err := MarshalGolden("theme_cancel", result)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, string(a), `"cancel swatch"`)
}
