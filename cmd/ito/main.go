package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/withakay/ito/internal/config"
	"github.com/withakay/ito/internal/harness"
	"github.com/withakay/ito/internal/loop"
	"github.com/withakay/ito/internal/selector"
	"github.com/withakay/ito/internal/state"
)

var version = "dev"

// Exit codes for abort reasons. 0 means Done or normal completion.
const (
	exitError         = 1
	exitThreshold     = 2
	exitFailFast      = 3
	exitMaxIterations = 4
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ito",
		Short:        "Iterative agent work loops over change proposals",
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(addContextCmd())
	root.AddCommand(clearContextCmd())
	return root
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, loop.ErrThreshold):
		return exitThreshold
	case errors.Is(err, loop.ErrFailFast):
		return exitFailFast
	case errors.Is(err, loop.ErrMaxIterations):
		return exitMaxIterations
	default:
		return exitError
	}
}

// resolveTarget maps the mutually exclusive target flags to a selector target.
func resolveTarget(change, module, continueModule string, continueReady bool) (selector.Target, error) {
	set := 0
	for _, on := range []bool{change != "", module != "", continueModule != "", continueReady} {
		if on {
			set++
		}
	}
	if set != 1 {
		return selector.Target{}, fmt.Errorf("exactly one of --change, --module, --continue-module or --continue-ready is required")
	}

	switch {
	case change != "":
		if err := state.ValidateChangeID(change); err != nil {
			return selector.Target{}, err
		}
		return selector.Target{Mode: selector.ModeChange, ID: change}, nil
	case module != "":
		return selector.Target{Mode: selector.ModeModule, ID: module}, nil
	case continueModule != "":
		return selector.Target{Mode: selector.ModeContinueModule, ID: continueModule}, nil
	default:
		return selector.Target{Mode: selector.ModeContinueReady}, nil
	}
}

func runCmd() *cobra.Command {
	var (
		harnessName       string
		model             string
		change            string
		module            string
		continueModule    string
		continueReady     bool
		allowAll          bool
		minIterations     int
		maxIterations     int
		completionPromise string
		exitOnError       bool
		errorThreshold    int
		validationCommand string
		skipValidation    bool
		noCommit          bool
		verbose           bool
		inactivityTimeout time.Duration
		worktrees         bool
	)

	cmd := &cobra.Command{
		Use:   "run [PROMPT]",
		Short: "Run the ralph loop against a change, module, or all ready work",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveTarget(change, module, continueModule, continueReady)
			if err != nil {
				return err
			}

			variant, err := harness.Parse(harnessName)
			if err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}

			cfg, err := config.Load(cwd)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			policy := cfg.Worktree
			if cmd.Flags().Changed("worktrees") {
				policy.Enabled = worktrees
			}

			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			logger := log.NewWithOptions(os.Stderr, log.Options{Level: level, ReportTimestamp: true})

			var h harness.Runner
			if variant == harness.StubVariant {
				h = &harness.Stub{}
			} else {
				h = &harness.CLI{
					Variant:           variant,
					Opts:              harness.Options{AllowAll: allowAll, Model: model},
					InactivityTimeout: inactivityTimeout,
					Echo:              cmd.OutOrStdout(),
				}
			}

			userPrompt := ""
			if len(args) > 0 {
				userPrompt = args[0]
			}

			opts := &loop.Options{
				Target:            target,
				Harness:           h,
				Prompt:            userPrompt,
				MinIterations:     minIterations,
				MaxIterations:     maxIterations,
				CompletionToken:   completionPromise,
				ExitOnError:       exitOnError,
				ErrorThreshold:    errorThreshold,
				ExtraValidation:   validationCommand,
				SkipValidation:    skipValidation,
				AutoCommit:        !noCommit,
				Worktree:          policy,
				Cwd:               cwd,
				RunID:             uuid.NewString(),
				Out:               cmd.OutOrStdout(),
				Color:             isatty.IsTerminal(os.Stdout.Fd()),
				Logger:            logger,
			}

			return loop.Run(opts) //nolint:wrapcheck // loop errors are user-facing
		},
	}

	cmd.Flags().StringVar(&harnessName, "harness", "", "agent harness: opencode, claude, codex, copilot or stub (default opencode)")
	cmd.Flags().StringVar(&model, "model", "", "model identifier passed to the harness")
	cmd.Flags().StringVar(&change, "change", "", "change id to run")
	cmd.Flags().StringVar(&module, "module", "", "run the lowest ready change in this module")
	cmd.Flags().StringVar(&continueModule, "continue-module", "", "run ready changes in this module until none remain")
	cmd.Flags().BoolVar(&continueReady, "continue-ready", false, "run ready changes across the repository until none remain")
	cmd.Flags().BoolVar(&allowAll, "allow-all", false, "pass the harness its permissive flag")
	cmd.Flags().IntVar(&minIterations, "min-iterations", loop.DefaultMinIterations, "minimum iterations before a promise is accepted")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", loop.DefaultMaxIterations, "maximum iterations before aborting")
	cmd.Flags().StringVar(&completionPromise, "completion-promise", loop.DefaultCompletionToken, "token the agent emits to claim completion")
	cmd.Flags().BoolVar(&exitOnError, "exit-on-error", false, "abort on the first non-retriable harness failure")
	cmd.Flags().IntVar(&errorThreshold, "error-threshold", loop.DefaultErrorThreshold, "harness failures tolerated before aborting")
	cmd.Flags().StringVar(&validationCommand, "validation-command", "", "extra validation command run after project checks")
	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "accept a completion promise without validation")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "do not auto-commit working-tree changes per iteration")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().DurationVar(&inactivityTimeout, "inactivity-timeout", 0, "harness inactivity timeout (default 15m)")
	cmd.Flags().BoolVar(&worktrees, "worktrees", false, "override the configured worktree policy")
	return cmd
}

func statusCmd() *cobra.Command {
	var change string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the latest ralph state for a change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
			return printStatus(cmd.OutOrStdout(), filepath.Join(cwd, ".ito"), change)
		},
	}
	cmd.Flags().StringVar(&change, "change", "", "change id (required)")
	cmd.MarkFlagRequired("change") //nolint:errcheck // flag name is correct
	return cmd
}

func addContextCmd() *cobra.Command {
	var change string

	cmd := &cobra.Command{
		Use:   "add-context TEXT",
		Short: "Append a note to a change's accumulated context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
			store, err := state.NewStore(filepath.Join(cwd, ".ito"), change)
			if err != nil {
				return err //nolint:wrapcheck // unsafe-id errors are user-facing
			}
			if err := store.AppendContext(strings.Join(args, " ")); err != nil {
				return err //nolint:wrapcheck // store errors carry the file path
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Context added for %s\n", change) //nolint:errcheck // display-only
			return nil
		},
	}
	cmd.Flags().StringVar(&change, "change", "", "change id (required)")
	cmd.MarkFlagRequired("change") //nolint:errcheck // flag name is correct
	return cmd
}

func clearContextCmd() *cobra.Command {
	var change string
	var force bool

	cmd := &cobra.Command{
		Use:   "clear-context",
		Short: "Clear a change's accumulated context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
			store, err := state.NewStore(filepath.Join(cwd, ".ito"), change)
			if err != nil {
				return err //nolint:wrapcheck // unsafe-id errors are user-facing
			}

			if !force && isatty.IsTerminal(os.Stdin.Fd()) {
				var confirmed bool
				prompt := huh.NewConfirm().
					Title(fmt.Sprintf("Clear accumulated context for %s?", change)).
					Value(&confirmed)
				if err := prompt.Run(); err != nil {
					return fmt.Errorf("confirming: %w", err)
				}
				if !confirmed {
					return nil
				}
			}

			if err := store.ClearContext(); err != nil {
				return err //nolint:wrapcheck // store errors carry the file path
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Context cleared for %s\n", change) //nolint:errcheck // display-only
			return nil
		},
	}
	cmd.Flags().StringVar(&change, "change", "", "change id (required)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	cmd.MarkFlagRequired("change") //nolint:errcheck // flag name is correct
	return cmd
}
