package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), "042-01_demo")
	require.NoError(t, err)
	return s
}

func TestLoadMissingReturnsFreshState(t *testing.T) {
	s := newTestStore(t)

	st, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Iteration)
	assert.Equal(t, OutcomeRunning, st.LastOutcome)
	assert.Empty(t, st.History)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	st := &RalphState{
		Iteration:   7,
		LastOutcome: OutcomeRunning,
		History: []IterationSummary{
			{
				Iteration:       6,
				ExitCode:        0,
				DurationMs:      48231,
				StdoutBytes:     12003,
				StderrBytes:     88,
				PromiseDetected: true,
				GitChanges:      4,
				RunID:           "run-a",
			},
		},
	}
	require.NoError(t, s.Save(st))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, st, loaded)
}

func TestSaveAtomicNoTempLeftovers(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(&RalphState{Iteration: 1, LastOutcome: OutcomeRunning}))
	require.NoError(t, s.Save(&RalphState{Iteration: 2, LastOutcome: OutcomeCompleted}))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}

	// The on-disk file is always valid JSON.
	data, err := os.ReadFile(s.StatePath())
	require.NoError(t, err)
	var st RalphState
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, 2, st.Iteration)
}

func TestLoadCorruptedIsFatal(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0o750))
	require.NoError(t, os.WriteFile(s.StatePath(), []byte("{not json"), 0o600))

	_, err := s.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupted))
	assert.Contains(t, err.Error(), s.StatePath())
}

func TestValidateChangeID(t *testing.T) {
	for _, id := range []string{"042-01_demo", "a", "x.y-z_1", strings.Repeat("a", 255)} {
		assert.NoError(t, ValidateChangeID(id), "id %q", id)
	}
	for _, id := range []string{
		"",
		"..",
		"a/..",
		"a/b",
		`a\b`,
		"has space",
		strings.Repeat("a", 256),
	} {
		assert.Error(t, ValidateChangeID(id), "id %q", id)
	}
}

func TestNewStoreRejectsUnsafeIDWithoutTouchingDisk(t *testing.T) {
	dir := t.TempDir()
	_, err := NewStore(dir, "../escape")
	require.Error(t, err)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestModuleOf(t *testing.T) {
	assert.Equal(t, "042", ModuleOf("042-01_demo"))
	assert.Equal(t, "solo", ModuleOf("solo"))
}

func TestAppendContext(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendContext("x"))
	require.NoError(t, s.AppendContext("y"))

	got, err := s.LoadContext()
	require.NoError(t, err)
	assert.Equal(t, "x\ny\n", got)
}

func TestAppendContextWhitespaceNoOp(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendContext("   \n\t"))

	_, err := os.Stat(s.ContextPath())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestClearContext(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendContext("note"))
	require.NoError(t, s.ClearContext())

	got, err := s.LoadContext()
	require.NoError(t, err)
	assert.Empty(t, got)

	// Clearing twice is fine.
	require.NoError(t, s.ClearContext())
}

func TestStorePaths(t *testing.T) {
	ito := t.TempDir()
	s, err := NewStore(ito, "007-02_x")
	require.NoError(t, err)

	want := filepath.Join(ito, ".state", "ralph", "007-02_x")
	assert.Equal(t, want, s.Dir())
	assert.Equal(t, filepath.Join(want, "state.json"), s.StatePath())
	assert.Equal(t, filepath.Join(want, "context.md"), s.ContextPath())
}
