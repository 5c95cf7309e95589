package proc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunCapturesStdoutAndStderr(t *testing.T) {
	res, err := Run(&Options{
		Binary: "sh",
		Args:   []string{"-c", "printf out; printf err >&2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestRunNonZeroExit(t *testing.T) {
	res, err := Run(&Options{
		Binary: "sh",
		Args:   []string{"-c", "exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestRunSignalExitIsShellEncoded(t *testing.T) {
	res, err := Run(&Options{
		Binary: "sh",
		Args:   []string{"-c", "kill -KILL $$"},
	})
	require.NoError(t, err)
	assert.Equal(t, 137, res.ExitCode)
}

func TestRunSpawnFailure(t *testing.T) {
	_, err := Run(&Options{Binary: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definitely-not-a-real-binary-xyz")
}

func TestRunEchoesWhileCapturing(t *testing.T) {
	var echoed bytes.Buffer
	res, err := Run(&Options{
		Binary:     "sh",
		Args:       []string{"-c", "printf hello"},
		EchoStdout: &echoed,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Stdout)
	assert.Equal(t, "hello", echoed.String())
}

func TestRunInactivityTimeout(t *testing.T) {
	start := time.Now()
	res, err := Run(&Options{
		Binary:            "sh",
		Args:              []string{"-c", "sleep 30"},
		InactivityTimeout: 300 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.Equal(t, TimeoutExitCode, res.ExitCode)
	assert.Less(t, time.Since(start), 20*time.Second, "timeout should fire well before the sleep ends")
}

func TestRunOutputKeepsTimeoutAtBay(t *testing.T) {
	// Emits a byte every 100ms for ~0.5s against a 300ms inactivity timeout:
	// activity keeps resetting the watchdog, so the run completes normally.
	res, err := Run(&Options{
		Binary: "sh",
		Args: []string{"-c",
			"for i in 1 2 3 4 5; do printf .; sleep 0.1; done"},
		InactivityTimeout: 300 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, ".....", res.Stdout)
}

func TestRunPartialUTF8Tail(t *testing.T) {
	// A truncated multi-byte sequence must not break capture.
	res, err := Run(&Options{
		Binary: "sh",
		Args:   []string{"-c", `printf '\303'`},
	})
	require.NoError(t, err)
	assert.Len(t, res.Stdout, 1)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunHonorsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte(""), 0o600))

	res, err := Run(&Options{
		Binary: "ls",
		Dir:    dir,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "marker.txt")
}
