package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/journal"
)

func executeReplay(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewReplayCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplay_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "counter.yaml", counterScenario)
	db := filepath.Join(dir, "runs.db")
	for _, id := range []string{"a", "b"} {
		_, err := executeRun(t, newTestRoot("text"), "--db", db, "--run-id", id, path)
		require.NoError(t, err)
	}

	out, err := executeReplay(t, newTestRoot("text"), "--db", db, path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ a")
	assert.Contains(t, out, "✓ b")
	assert.Contains(t, out, "✓ Deterministic")
}

func TestReplay_Mismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "counter.yaml", counterScenario)
	db := filepath.Join(dir, "runs.db")

	// A run recorded under the same scenario name with a different trace.
	js, err := journal.Open(db)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, js.BeginRun(ctx, "forged", "counter"))
	_, err = js.Seal(ctx, "forged")
	require.NoError(t, err)
	require.NoError(t, js.Close())

	out, err := executeReplay(t, newTestRoot("json"), "--db", db, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Runs, 1)
	assert.False(t, resp.Data.Runs[0].Deterministic)
}

func TestReplay_NoRecordedRuns(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "counter.yaml", counterScenario)

	_, err := executeReplay(t, newTestRoot("text"), "--db", filepath.Join(dir, "runs.db"), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no recorded runs of counter")

	_, err = executeReplay(t, newTestRoot("text"), "--db", filepath.Join(dir, "runs.db"), "--run", "x", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "x" not found`)
}
