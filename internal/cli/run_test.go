package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/journal"
)

const counterScenario = `
name: counter
description: "counter reaches its target"
component: counter
store:
  target: 2
steps:
  - action: resolve
assertions:
  - type: result
    expect: 2
`

const failingScenario = `
name: wrong
description: "asserts the wrong value"
component: mood
steps:
  - action: resolve
assertions:
  - type: result
    expect: happy
`

func writeScenarioFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeRun(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRunCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_TextPass(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "counter.yaml", counterScenario)

	out, err := executeRun(t, newTestRoot("text"), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter")
	assert.Contains(t, out, "value: 2")
}

func TestRun_TextFail(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "wrong.yaml", failingScenario)

	out, err := executeRun(t, newTestRoot("text"), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Assertion failed: result")
}

func TestRun_JSON(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "counter.yaml", counterScenario)

	out, err := executeRun(t, newTestRoot("json"), "--run-id", "r1", path)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "r1", resp.Data.RunID)
	assert.True(t, resp.Data.Pass)
	assert.EqualValues(t, 2, resp.Data.Value)
	assert.Equal(t, 9, resp.Data.Entries)
	assert.Len(t, resp.Data.Fingerprint, 64)
}

func TestRun_JSONFail(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "wrong.yaml", failingScenario)

	out, err := executeRun(t, newTestRoot("json"), path)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeFailed, resp.Error.Code)
}

func TestRun_DefaultRunIDIsUnique(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "counter.yaml", counterScenario)
	db := filepath.Join(dir, "runs.db")

	_, err := executeRun(t, newTestRoot("text"), "--db", db, path)
	require.NoError(t, err)
	_, err = executeRun(t, newTestRoot("text"), "--db", db, path)
	require.NoError(t, err)

	js, err := journal.Open(db)
	require.NoError(t, err)
	defer js.Close()

	runs, err := js.Runs(t.Context())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
	for _, r := range runs {
		assert.True(t, strings.HasPrefix(r.ID, "counter-"), r.ID)
		assert.Equal(t, runs[0].Fingerprint, r.Fingerprint)
	}
}

func TestRun_JournalFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "counter.yaml", counterScenario)

	opts := newTestRoot("text")
	opts.Config.Journal = filepath.Join(dir, "configured.db")

	_, err := executeRun(t, opts, "--run-id", "cfg", path)
	require.NoError(t, err)
	_, err = os.Stat(opts.Config.Journal)
	assert.NoError(t, err)
}

func TestRun_MissingScenario(t *testing.T) {
	_, err := executeRun(t, newTestRoot("text"), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_RequiresOneArg(t *testing.T) {
	_, err := executeRun(t, newTestRoot("text"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRun_MetricsJSON(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "counter.yaml", counterScenario)

	out, err := executeRun(t, newTestRoot("json"), "--metrics", path)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	m := resp.Data.Metrics
	assert.Equal(t, 1.0, m["strata_resolves_total"])
	assert.Equal(t, 2.0, m[`strata_render_attempts_total{outcome="interrupted"}`])
	assert.Equal(t, 1.0, m[`strata_render_attempts_total{outcome="completed"}`])
	assert.Equal(t, 1.0, m["strata_layers_created_total"])
}

func TestRun_MetricsText(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "counter.yaml", counterScenario)

	out, err := executeRun(t, newTestRoot("text"), "--metrics", path)
	require.NoError(t, err)
	assert.Contains(t, out, "metric: strata_resolves_total 1")
}

func TestRun_NoMetricsByDefault(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "counter.yaml", counterScenario)

	out, err := executeRun(t, newTestRoot("json"), path)
	require.NoError(t, err)
	assert.NotContains(t, out, `"metrics"`)
}
