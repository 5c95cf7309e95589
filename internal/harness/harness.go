// Package harness adapts the supported agent CLIs behind a single invocation
// contract: build (binary, args) for a prompt, run through the shared process
// runner, hand back the captured result.
package harness

import (
	"fmt"
	"io"
	"time"

	"github.com/withakay/ito/internal/proc"
)

// Variant identifies a supported agent CLI.
type Variant string

// Supported variants.
const (
	Opencode      Variant = "opencode"
	ClaudeCode    Variant = "claude"
	Codex         Variant = "codex"
	GithubCopilot Variant = "github-copilot"
	StubVariant   Variant = "stub"
)

// DefaultVariant is used when the caller names no harness.
const DefaultVariant = Opencode

// Parse maps a user-facing harness name to a variant. "copilot" is an alias
// for "github-copilot"; the empty string selects the default.
func Parse(name string) (Variant, error) {
	switch name {
	case "":
		return DefaultVariant, nil
	case "opencode":
		return Opencode, nil
	case "claude":
		return ClaudeCode, nil
	case "codex":
		return Codex, nil
	case "copilot", "github-copilot":
		return GithubCopilot, nil
	case "stub":
		return StubVariant, nil
	default:
		return "", fmt.Errorf("unknown harness %q (expected opencode, claude, codex, copilot or stub)", name)
	}
}

// Options carries per-run argument knobs shared by all variants.
type Options struct {
	AllowAll bool
	Model    string
}

// Invocation is the concrete command a variant builds for a prompt.
type Invocation struct {
	Binary string
	Args   []string
	// Streams reports whether the CLI emits useful output incrementally and
	// should be echoed to the controller's output live.
	Streams bool
}

// Command builds the invocation for the given prompt. StubVariant has no
// command; it bypasses process spawn entirely.
func (v Variant) Command(prompt string, opts Options) Invocation {
	switch v {
	case Opencode:
		args := []string{"run"}
		if opts.AllowAll {
			args = append(args, "--allow-all")
		}
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}
		args = append(args, prompt)
		return Invocation{Binary: "opencode", Args: args, Streams: true}
	case ClaudeCode:
		args := []string{"-p", prompt}
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}
		if opts.AllowAll {
			args = append(args, "--dangerously-skip-permissions")
		}
		return Invocation{Binary: "claude", Args: args}
	case Codex:
		args := []string{"exec"}
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}
		if opts.AllowAll {
			args = append(args, "--yolo")
		}
		args = append(args, prompt)
		return Invocation{Binary: "codex", Args: args, Streams: true}
	case GithubCopilot:
		args := []string{"-p", prompt}
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}
		if opts.AllowAll {
			args = append(args, "--yolo")
		}
		return Invocation{Binary: "copilot", Args: args, Streams: true}
	default:
		return Invocation{}
	}
}

// Runner is what the loop drives once per iteration.
type Runner interface {
	// Run invokes the harness with the prompt in dir and returns the captured
	// result. Spawn failures are returned as errors.
	Run(prompt, dir string) (*proc.Result, error)
	// Name identifies the harness in logs and status output.
	Name() string
	// External reports whether the harness runs a real child process whose
	// working-tree effects are observable via git.
	External() bool
}

// CLI runs a real agent CLI through the shared process runner.
type CLI struct {
	Variant           Variant
	Opts              Options
	InactivityTimeout time.Duration
	// Echo receives live output when the variant streams. Nil disables echo.
	Echo io.Writer
}

// Name implements Runner.
func (c *CLI) Name() string {
	return string(c.Variant)
}

// External implements Runner.
func (c *CLI) External() bool {
	return true
}

// Run implements Runner.
func (c *CLI) Run(prompt, dir string) (*proc.Result, error) {
	inv := c.Variant.Command(prompt, c.Opts)
	popts := &proc.Options{
		Binary:            inv.Binary,
		Args:              inv.Args,
		Dir:               dir,
		InactivityTimeout: c.InactivityTimeout,
	}
	if inv.Streams && c.Echo != nil {
		popts.EchoStdout = c.Echo
		popts.EchoStderr = c.Echo
	}
	return proc.Run(popts) //nolint:wrapcheck // thin adapter
}
