package loop

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/withakay/ito/internal/config"
	"github.com/withakay/ito/internal/exitcode"
	"github.com/withakay/ito/internal/git"
	"github.com/withakay/ito/internal/logfile"
	"github.com/withakay/ito/internal/proc"
	"github.com/withakay/ito/internal/prompt"
	"github.com/withakay/ito/internal/selector"
	"github.com/withakay/ito/internal/state"
	"github.com/withakay/ito/internal/validate"
	"github.com/withakay/ito/internal/worktree"
)

// GitClient abstracts the git operations the loop issues per iteration.
type GitClient interface {
	CountChanges(dir string) (int, error)
	AddAll(dir string) error
	Commit(dir, message string) error
}

type realGitClient struct{}

func (realGitClient) CountChanges(dir string) (int, error) {
	return git.CountChanges(dir) //nolint:wrapcheck // thin adapter
}

func (realGitClient) AddAll(dir string) error {
	return git.AddAll(dir) //nolint:wrapcheck // thin adapter
}

func (realGitClient) Commit(dir, message string) error {
	return git.Commit(dir, message) //nolint:wrapcheck // thin adapter
}

// deps groups the loop's collaborators so tests can substitute fakes.
type deps struct {
	git      GitClient
	validate func(itoPath, changeID, dir, extra string) (*validate.Result, error)
	resolve  func(cwd, changeID string, policy config.Worktree) (*worktree.Resolution, error)
	sleep    func(time.Duration)
}

func defaultDeps() *deps {
	return &deps{
		git: realGitClient{},
		validate: func(itoPath, changeID, dir, extra string) (*validate.Result, error) {
			v := &validate.Validator{ItoPath: itoPath, ChangeID: changeID, Dir: dir, ExtraCommand: extra}
			return v.Run() //nolint:wrapcheck // thin adapter
		},
		resolve: worktree.Resolve,
		sleep:   time.Sleep,
	}
}

// Run resolves the target and drives the iteration loop for each selected
// change. Continuation targets re-enumerate ready work between changes.
func Run(opts *Options) error {
	return run(opts, defaultDeps())
}

func run(opts *Options, d *deps) error {
	opts.applyDefaults()
	if opts.MinIterations > opts.MaxIterations {
		return fmt.Errorf("min iterations (%d) exceeds max (%d)", opts.MinIterations, opts.MaxIterations)
	}

	repo := &selector.Repo{ItoPath: filepath.Join(opts.Cwd, ".ito")}
	render := newRenderer(opts.Out, opts.Color)

	switch opts.Target.Mode {
	case selector.ModeChange:
		id, err := repo.Resolve(opts.Target.ID)
		if err != nil {
			return err //nolint:wrapcheck // selector errors are user-facing
		}
		return runChange(opts, d, render, id)

	case selector.ModeModule:
		id, err := repo.NextReady(opts.Target.ID)
		if errors.Is(err, selector.ErrNoWork) {
			render.NoWork(opts.Target.ID)
			return nil
		}
		if err != nil {
			return err //nolint:wrapcheck // selector errors are user-facing
		}
		return runChange(opts, d, render, id)

	default: // ModeContinueModule, ModeContinueReady
		module := ""
		if opts.Target.Mode == selector.ModeContinueModule {
			module = opts.Target.ID
		}
		for {
			id, err := repo.NextReady(module)
			if errors.Is(err, selector.ErrNoWork) {
				render.NoWork(module)
				return nil
			}
			if err != nil {
				return err //nolint:wrapcheck // selector errors are user-facing
			}
			if err := runChange(opts, d, render, id); err != nil {
				return err
			}
		}
	}
}

// runChange executes the per-iteration state machine for one change.
func runChange(opts *Options, d *deps, render *renderer, changeID string) error {
	res, err := d.resolve(opts.Cwd, changeID, opts.Worktree)
	if err != nil {
		return err //nolint:wrapcheck // resolver errors are user-facing
	}
	if res.Note != "" {
		opts.Logger.Warn(res.Note)
	}

	itoPath := filepath.Join(res.Dir, ".ito")
	store, err := state.NewStore(itoPath, changeID)
	if err != nil {
		return err //nolint:wrapcheck // unsafe-id errors are user-facing
	}
	st, err := store.Load()
	if err != nil {
		return err //nolint:wrapcheck // state errors carry the file path
	}

	render.Header(changeID, res.Dir, opts)
	builder := &prompt.Builder{ItoPath: itoPath, ChangeID: changeID}

	var (
		retr      exitcode.Counter
		errCount  int
		carryFail string
	)
	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = time.Second
	wait.MaxInterval = 30 * time.Second

	for {
		if st.Iteration >= opts.MaxIterations {
			render.MaxIterations(opts.MaxIterations)
			return ErrMaxIterations
		}
		iter := st.Iteration + 1
		render.Banner(iter, opts.MaxIterations)

		acc, err := store.LoadContext()
		if err != nil {
			return err //nolint:wrapcheck // context errors carry the file path
		}
		if carryFail != "" {
			acc += "\n\nPrevious iteration harness failure:\n" + carryFail
		}

		p, err := builder.Build(&prompt.Input{
			Iteration:          iter,
			MaxIterations:      opts.MaxIterations,
			CompletionToken:    opts.CompletionToken,
			AccumulatedContext: acc,
			ValidationFailure:  st.LastValidationFailure,
			UserPrompt:         opts.Prompt,
		})
		if err != nil {
			return err //nolint:wrapcheck // builder errors carry the file path
		}
		carryFail = ""

		hres, err := opts.Harness.Run(p, res.Dir)
		if err != nil {
			return fmt.Errorf("invoking harness %s: %w", opts.Harness.Name(), err)
		}
		writeIterationLog(opts, store.Dir(), iter, hres)

		gitChanges := 0
		if opts.Harness.External() {
			gitChanges, err = d.git.CountChanges(res.Dir)
			if err != nil {
				opts.Logger.Warn("counting git changes", "err", err)
			}
		}

		summary := state.IterationSummary{
			Iteration:   iter,
			ExitCode:    hres.ExitCode,
			DurationMs:  hres.Duration.Milliseconds(),
			StdoutBytes: len(hres.Stdout),
			StderrBytes: len(hres.Stderr),
			GitChanges:  gitChanges,
			RunID:       opts.RunID,
			TimedOut:    hres.TimedOut,
		}

		var abortErr error
		retriable := false
		switch {
		case hres.ExitCode == 0:
			retr.Reset()
			wait.Reset()
		case retr.Observe(hres.ExitCode):
			retriable = true
			summary.RetriableCrash = true
			render.RetriableCrash(hres.ExitCode, retr.Consecutive(), exitcode.RetryCap)
		default:
			wait.Reset()
			if opts.ExitOnError {
				abortErr = ErrFailFast
			} else {
				errCount++
				if errCount >= opts.ErrorThreshold {
					abortErr = ErrThreshold
				} else {
					carryFail = validate.Truncate(strings.TrimSpace(hres.Stdout+"\n"+hres.Stderr), validate.MaxFailureOutput)
					render.HarnessError(hres, errCount, opts.ErrorThreshold)
				}
			}
		}

		// Commit before promise detection; a passing validation must reflect
		// the committed tree.
		promised := false
		done := false
		if hres.ExitCode == 0 {
			if opts.AutoCommit && gitChanges > 0 && opts.Harness.External() {
				msg := fmt.Sprintf("ralph: iteration %d (%s)", iter, changeID)
				if err := commitAll(d.git, res.Dir, msg); err != nil {
					opts.Logger.Warn("commit failed", "err", err)
				} else {
					summary.Committed = true
				}
			} else if gitChanges == 0 && opts.Harness.External() {
				render.NoChanges()
			}

			promised = strings.Contains(hres.Stdout, opts.CompletionToken)
			summary.PromiseDetected = promised
		}

		if promised {
			switch {
			case opts.SkipValidation:
				render.SkipValidationWarning()
				summary.ValidationPassed = true
				st.LastValidationFailure = ""
				done = iter >= opts.MinIterations
			default:
				vres, verr := d.validate(itoPath, changeID, res.Dir, opts.ExtraValidation)
				if verr != nil {
					return fmt.Errorf("validating completion: %w", verr)
				}
				summary.ValidationPassed = vres.Success
				render.Validation(vres)
				if vres.Success {
					st.LastValidationFailure = ""
					done = iter >= opts.MinIterations
				} else {
					st.LastValidationFailure = vres.FailureMessage
				}
			}
			if !done && st.LastValidationFailure == "" {
				render.PromiseWithheld(iter, opts.MinIterations)
			}
		}

		st.Iteration = iter
		st.LastPromptBytes = len(p)
		st.History = append(st.History, summary)
		switch {
		case done:
			st.LastOutcome = state.OutcomeCompleted
		case errors.Is(abortErr, ErrThreshold):
			st.LastOutcome = state.OutcomeAbortedThreshold
		case abortErr != nil:
			st.LastOutcome = state.OutcomeErroredOut
		case iter >= opts.MaxIterations:
			abortErr = ErrMaxIterations
			st.LastOutcome = state.OutcomeErroredOut
		default:
			st.LastOutcome = state.OutcomeRunning
		}
		if err := store.Save(st); err != nil {
			return err //nolint:wrapcheck // state errors carry the file path
		}

		switch {
		case done:
			render.Done(changeID, iter)
			return nil
		case abortErr != nil:
			render.Abort(abortErr)
			return abortErr
		case retriable:
			d.sleep(wait.NextBackOff())
		}
	}
}

func commitAll(g GitClient, dir, message string) error {
	if err := g.AddAll(dir); err != nil {
		return err //nolint:wrapcheck // logged, not propagated
	}
	return g.Commit(dir, message) //nolint:wrapcheck // logged, not propagated
}

// writeIterationLog tees the captured harness output into the state logs dir.
// Best effort; failures are logged and do not affect the iteration.
func writeIterationLog(opts *Options, stateDir string, iter int, hres *proc.Result) {
	w, err := logfile.New(filepath.Join(stateDir, "logs"), iter)
	if err != nil {
		opts.Logger.Warn("creating iteration log", "err", err)
		return
	}
	defer w.Close() //nolint:errcheck // best-effort log capture
	fmt.Fprintf(w, "exit=%d timed_out=%v duration=%s\n--- stdout ---\n%s\n--- stderr ---\n%s\n",
		hres.ExitCode, hres.TimedOut, hres.Duration, hres.Stdout, hres.Stderr) //nolint:errcheck // best-effort log capture
	opts.Logger.Debug("iteration log written", "path", w.Path())
}
