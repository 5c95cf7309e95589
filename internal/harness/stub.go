package harness

import (
	"time"

	"github.com/withakay/ito/internal/proc"
)

// StubResult scripts one stub invocation.
type StubResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Stub bypasses process spawn and replays scripted results in order. Once the
// script is exhausted the last result repeats. Used by tests and --harness stub.
type Stub struct {
	Script []StubResult
	calls  int
}

// Name implements Runner.
func (s *Stub) Name() string {
	return string(StubVariant)
}

// External implements Runner. The stub edits nothing, so the loop skips git
// accounting for it.
func (s *Stub) External() bool {
	return false
}

// Calls returns how many times the stub was invoked.
func (s *Stub) Calls() int {
	return s.calls
}

// Run implements Runner.
func (s *Stub) Run(_, _ string) (*proc.Result, error) {
	var r StubResult
	switch {
	case len(s.Script) == 0:
		r = StubResult{Stdout: "<promise>COMPLETE</promise>\n"}
	case s.calls < len(s.Script):
		r = s.Script[s.calls]
	default:
		r = s.Script[len(s.Script)-1]
	}
	s.calls++

	code := r.ExitCode
	if r.TimedOut {
		code = proc.TimeoutExitCode
	}
	return &proc.Result{
		Stdout:   r.Stdout,
		Stderr:   r.Stderr,
		ExitCode: code,
		Duration: time.Millisecond,
		TimedOut: r.TimedOut,
	}, nil
}
