package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, Config{MaxAttempts: 100, LogLevel: "info", Journal: ""}, cfg)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
max_attempts: 7
log_level:    "debug"
`), "strata.cue")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxAttempts)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Empty(t, cfg.Journal)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `max_attemps: 3`},
		{"attempts below one", `max_attempts: 0`},
		{"bad level", `log_level: "loud"`},
		{"wrong type", `journal: 3`},
		{"syntax error", `max_attempts: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "strata.cue")
			require.Error(t, err)
		})
	}
}

func TestParse_ErrorHasPosition(t *testing.T) {
	_, err := Parse([]byte("\nlog_level: \"loud\"\n"), "strata.cue")
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.cue")
	require.NoError(t, os.WriteFile(path, []byte(`journal: "runs.db"`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "runs.db", cfg.Journal)
	assert.Equal(t, 100, cfg.MaxAttempts)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "warn"}.Level())
	assert.Equal(t, slog.LevelError, Config{LogLevel: "error"}.Level())
	assert.Equal(t, slog.LevelInfo, Config{}.Level())
}
