// Package loop drives the ralph iteration loop: prompt → harness → classify →
// commit → promise → validate → decide.
package loop

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/withakay/ito/internal/config"
	"github.com/withakay/ito/internal/harness"
	"github.com/withakay/ito/internal/prompt"
	"github.com/withakay/ito/internal/selector"
)

// Defaults for caller-tunable knobs.
const (
	DefaultMinIterations  = 1
	DefaultMaxIterations  = 50
	DefaultErrorThreshold = 10

	// DefaultCompletionToken mirrors the prompt package's default.
	DefaultCompletionToken = prompt.DefaultCompletionToken
)

// Abort reasons, surfaced to the CLI for distinct exit codes.
var (
	ErrThreshold     = errors.New("harness error threshold reached")
	ErrFailFast      = errors.New("harness failed")
	ErrMaxIterations = errors.New("max iterations reached")
)

// Options configures a ralph run.
type Options struct {
	Target selector.Target
	// Harness runs one agent invocation per iteration.
	Harness harness.Runner
	// Prompt is the user's free-form prompt argument, appended last.
	Prompt string

	MinIterations   int
	MaxIterations   int
	CompletionToken string
	ExitOnError     bool
	ErrorThreshold  int
	// ExtraValidation is an optional stage-3 validation command.
	ExtraValidation string
	SkipValidation  bool
	AutoCommit      bool

	Worktree config.Worktree
	// Cwd is the process working directory; the worktree resolver may swap
	// it for a matching worktree per change.
	Cwd string
	// RunID stamps this invocation's history rows.
	RunID string

	Out    io.Writer
	Color  bool
	Logger *log.Logger
}

func (o *Options) applyDefaults() {
	if o.MinIterations <= 0 {
		o.MinIterations = DefaultMinIterations
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.ErrorThreshold <= 0 {
		o.ErrorThreshold = DefaultErrorThreshold
	}
	if o.CompletionToken == "" {
		o.CompletionToken = DefaultCompletionToken
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}
