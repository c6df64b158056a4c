package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordRun runs the counter scenario into a journal file and returns its path.
func recordRun(t *testing.T, runID string) string {
	t.Helper()
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "counter.yaml", counterScenario)
	db := filepath.Join(dir, "runs.db")
	_, err := executeRun(t, newTestRoot("text"), "--db", db, "--run-id", runID, path)
	require.NoError(t, err)
	return db
}

func executeTrace(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrace_MissingDBFlag(t *testing.T) {
	_, err := executeTrace(t, newTestRoot("text"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestTrace_ListRuns(t *testing.T) {
	db := recordRun(t, "first")

	out, err := executeTrace(t, newTestRoot("text"), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Runs ===")
	assert.Contains(t, out, "first  counter")
}

func TestTrace_EmptyJournal(t *testing.T) {
	out, err := executeTrace(t, newTestRoot("text"), "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in journal.")
}

func TestTrace_Timeline(t *testing.T) {
	db := recordRun(t, "first")

	out, err := executeTrace(t, newTestRoot("text"), "--db", db, "--run", "first")
	require.NoError(t, err)
	assert.Contains(t, out, "Run: first (counter)")
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "0001 resolve")
	assert.Contains(t, out, "interrupt:")
	assert.Contains(t, out, "attempt:   3")
}

func TestTrace_JSONKindFilter(t *testing.T) {
	db := recordRun(t, "first")

	out, err := executeTrace(t, newTestRoot("json"), "--db", db, "--run", "first", "--kind", "interrupt")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Timeline, 2)
	assert.Equal(t, 9, sumStats(resp.Data.Stats))
	assert.Equal(t, 2, resp.Data.Stats["interrupt"])
	assert.Len(t, resp.Data.Fingerprint, 64)
}

func TestTrace_UnknownRun(t *testing.T) {
	db := recordRun(t, "first")

	_, err := executeTrace(t, newTestRoot("text"), "--db", db, "--run", "second")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `run "second" not found`)
}

func sumStats(stats map[string]int) int {
	n := 0
	for _, v := range stats {
		n += v
	}
	return n
}
