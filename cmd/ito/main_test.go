package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withakay/ito/internal/loop"
	"github.com/withakay/ito/internal/selector"
	"github.com/withakay/ito/internal/state"
	"github.com/withakay/ito/internal/testutil"
)

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitThreshold, exitCodeFor(loop.ErrThreshold))
	assert.Equal(t, exitFailFast, exitCodeFor(loop.ErrFailFast))
	assert.Equal(t, exitMaxIterations, exitCodeFor(loop.ErrMaxIterations))
	assert.Equal(t, exitError, exitCodeFor(errors.New("other")))
}

func TestResolveTargetModes(t *testing.T) {
	target, err := resolveTarget("042-01_demo", "", "", false)
	require.NoError(t, err)
	assert.Equal(t, selector.Target{Mode: selector.ModeChange, ID: "042-01_demo"}, target)

	target, err = resolveTarget("", "042", "", false)
	require.NoError(t, err)
	assert.Equal(t, selector.ModeModule, target.Mode)

	target, err = resolveTarget("", "", "042", false)
	require.NoError(t, err)
	assert.Equal(t, selector.ModeContinueModule, target.Mode)

	target, err = resolveTarget("", "", "", true)
	require.NoError(t, err)
	assert.Equal(t, selector.ModeContinueReady, target.Mode)
}

func TestResolveTargetExactlyOne(t *testing.T) {
	_, err := resolveTarget("", "", "", false)
	assert.Error(t, err)

	_, err = resolveTarget("a", "b", "", false)
	assert.Error(t, err)
}

func TestResolveTargetUnsafeChange(t *testing.T) {
	_, err := resolveTarget("../evil", "", "", false)
	assert.Error(t, err)
}

func TestPrintStatus(t *testing.T) {
	ito := t.TempDir()
	testutil.WriteFile(t, ito, "changes/042-01_demo/tasks.md", "- [x] 1.1: a\n- [ ] 1.2: b\n")

	store, err := state.NewStore(ito, "042-01_demo")
	require.NoError(t, err)
	require.NoError(t, store.Save(&state.RalphState{
		Iteration:   2,
		LastOutcome: state.OutcomeRunning,
		History: []state.IterationSummary{
			{Iteration: 1, ExitCode: 1, DurationMs: 1200},
			{Iteration: 2, ExitCode: 0, DurationMs: 900, PromiseDetected: true, ValidationPassed: false},
		},
	}))

	var out bytes.Buffer
	require.NoError(t, printStatus(&out, ito, "042-01_demo"))
	s := out.String()

	assert.Contains(t, s, "042-01_demo")
	assert.Contains(t, s, "Iteration: 2")
	assert.Contains(t, s, "running")
	assert.Contains(t, s, "1/2 complete")
	assert.Contains(t, s, "#1")
	assert.Contains(t, s, "#2")
}

func TestPrintStatusFreshChange(t *testing.T) {
	ito := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, printStatus(&out, ito, "042-01_demo"))
	assert.Contains(t, out.String(), "Iteration: 0")
}

func TestPrintStatusUnsafeID(t *testing.T) {
	var out bytes.Buffer
	err := printStatus(&out, t.TempDir(), "../x")
	assert.Error(t, err)
}

func TestPrintStatusShowsLatestLog(t *testing.T) {
	ito := t.TempDir()
	store, err := state.NewStore(ito, "042-01_demo")
	require.NoError(t, err)
	require.NoError(t, store.Save(&state.RalphState{Iteration: 1, LastOutcome: state.OutcomeRunning}))
	testutil.WriteFile(t, store.Dir(), "logs/20250101-120000-iter1.log", "raw")

	var out bytes.Buffer
	require.NoError(t, printStatus(&out, ito, "042-01_demo"))
	assert.Contains(t, out.String(), filepath.Join("logs", "20250101-120000-iter1.log"))
}

func TestRootCmdHasCoreCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "status", "add-context", "clear-context"} {
		assert.Contains(t, names, want)
	}
}
