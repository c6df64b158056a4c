package journal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/state"
)

// createTestStore opens a journal in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "database file was not created")

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, "r1", "memory"))
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Run{{ID: "r1", Name: "memory"}}, runs)
}

func TestAppend_OrderedAndIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, "r1", "demo"))

	second := engine.Entry{Seq: 2, Kind: engine.KindAttempt, LayerID: "l1", Component: "c", Detail: "n=1"}
	first := engine.Entry{Seq: 1, Kind: engine.KindResolve, LayerID: "l1", Component: "c"}
	require.NoError(t, s.Append(ctx, "r1", second))
	require.NoError(t, s.Append(ctx, "r1", first))
	require.NoError(t, s.Append(ctx, "r1", first))

	entries, err := s.Entries(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []engine.Entry{first, second}, entries)

	n, err := s.Count(ctx, "r1", engine.KindAttempt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Count(ctx, "r1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAppend_UnknownRunViolatesForeignKey(t *testing.T) {
	s := createTestStore(t)
	err := s.Append(context.Background(), "missing", engine.Entry{Seq: 1, Kind: engine.KindResolve})
	assert.Error(t, err)
}

func TestEntries_EmptyRun(t *testing.T) {
	s := createTestStore(t)
	entries, err := s.Entries(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRecorder_CapturesRuntimeActivity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, "run", "counter"))

	rt := engine.New(
		engine.WithJournal(s.Recorder(ctx, "run")),
		engine.WithIDGenerator(engine.NewFixedGenerator("root")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	counter := engine.DefineValue("counter", func(f *engine.Frame) (any, error) {
		n, set := f.Store("$n", 0)
		if n.(int) < 1 {
			return nil, set(n.(int) + 1)
		}
		return n, nil
	})

	fut, err := rt.Use(counter, map[state.Key]any{}).Resolve()
	require.NoError(t, err)
	v, err := fut.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	entries, err := s.Entries(ctx, "run")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, engine.KindResolve, entries[0].Kind)
	assert.Equal(t, "root", entries[0].LayerID)

	interrupts, err := s.Count(ctx, "run", engine.KindInterrupt)
	require.NoError(t, err)
	assert.Equal(t, 1, interrupts)
}

func TestSeal_StableAcrossLayerIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, run := range []struct{ id, layer string }{{"a", "x"}, {"b", "y"}} {
		require.NoError(t, s.BeginRun(ctx, run.id, "same"))
		require.NoError(t, s.Append(ctx, run.id, engine.Entry{Seq: 1, Kind: engine.KindResolve, LayerID: run.layer, Component: "c"}))
	}

	fa, err := s.Seal(ctx, "a")
	require.NoError(t, err)
	fb, err := s.Seal(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, fa, runs[0].Fingerprint)
}
