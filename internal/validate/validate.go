// Package validate runs the post-promise validation stages: task completion,
// discovered project checks, and an optional caller-supplied command.
package validate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/withakay/ito/internal/tasks"
)

// StageTimeout is the hard per-stage command timeout.
const StageTimeout = 5 * time.Minute

// MaxFailureOutput caps the combined output folded into the next prompt.
const MaxFailureOutput = 12 * 1024

// maxListedTasks bounds how many unfinished tasks a stage-1 failure names.
const maxListedTasks = 5

// StageStatus is the outcome of one validation stage.
type StageStatus int

// Stage statuses.
const (
	Skipped StageStatus = iota
	Passed
	Failed
	TimedOut
)

// Stage is the result of one validation stage.
type Stage struct {
	Name    string
	Status  StageStatus
	Summary string
	Output  string
	Elapsed time.Duration
}

// Result aggregates all stages. Any stage failure short-circuits Success;
// all-skipped is success.
type Result struct {
	Success bool
	Stages  []Stage
	// FailureMessage is the composite message injected into the next prompt,
	// truncated to MaxFailureOutput.
	FailureMessage string
}

// Validator configures a validation pass for one change.
type Validator struct {
	ItoPath  string
	ChangeID string // empty skips the task-completion stage
	Dir      string // working directory for validation commands
	// ExtraCommand is the caller-supplied stage-3 command, if any.
	ExtraCommand string
	// Timeout overrides StageTimeout when positive (tests).
	Timeout time.Duration
}

// Run executes the stages in fixed order and aggregates the result.
func (v *Validator) Run() (*Result, error) {
	res := &Result{Success: true}

	taskStage, err := v.taskStage()
	if err != nil {
		return nil, err
	}
	res.record(taskStage)
	if taskStage.Status == Failed {
		// Task bookkeeping failed; the later stages would validate a tree the
		// tasks say is unfinished. Short-circuit.
		res.compose()
		return res, nil
	}

	for _, st := range v.projectStages() {
		res.record(st)
	}
	if res.Success {
		res.record(v.extraStage())
	} else {
		res.record(Stage{Name: "extra", Status: Skipped})
	}

	res.compose()
	return res, nil
}

// taskStage passes iff every task for the change is complete or shelved.
func (v *Validator) taskStage() (Stage, error) {
	if v.ChangeID == "" {
		return Stage{Name: "tasks", Status: Skipped}, nil
	}

	list, err := tasks.ParseFile(filepath.Join(v.ItoPath, "changes", v.ChangeID, "tasks.md"))
	if err != nil {
		return Stage{}, fmt.Errorf("task stage: %w", err)
	}

	c := list.Counts()
	if list.Done() {
		return Stage{
			Name:    "tasks",
			Status:  Passed,
			Summary: fmt.Sprintf("%d complete, %d shelved", c.Complete, c.Shelved),
		}, nil
	}

	var ids []string
	for _, t := range list.Remaining(maxListedTasks) {
		ids = append(ids, t.ID)
	}
	return Stage{
		Name:    "tasks",
		Status:  Failed,
		Summary: fmt.Sprintf("%d of %d tasks unfinished (first: %s)", c.Pending+c.InProgress, c.Total, strings.Join(ids, ", ")),
	}, nil
}

// projectStages runs each discovered project validation command as its own
// stage. Nothing discovered degrades gracefully to a single passed stage
// with a warning summary.
func (v *Validator) projectStages() []Stage {
	commands, source := DiscoverCommands(v.Dir)
	if len(commands) == 0 {
		return []Stage{{
			Name:    "project",
			Status:  Passed,
			Summary: "warning: no validation commands discovered (probed ito.json, .ito/config.json, AGENTS.md, CLAUDE.md)",
		}}
	}

	var stages []Stage
	for _, cmd := range commands {
		st := v.runCommand("project", cmd)
		st.Summary = fmt.Sprintf("%s (from %s)", st.Summary, source)
		stages = append(stages, st)
		if st.Status != Passed {
			break
		}
	}
	return stages
}

func (v *Validator) extraStage() Stage {
	if v.ExtraCommand == "" {
		return Stage{Name: "extra", Status: Skipped}
	}
	return v.runCommand("extra", v.ExtraCommand)
}

// runCommand executes one validation command through the shell under the
// stage timeout.
func (v *Validator) runCommand(stageName, command string) Stage {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = StageTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command) //nolint:gosec // validation commands are user-configured by design
	cmd.Dir = v.Dir
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Stage{
			Name:    stageName,
			Status:  TimedOut,
			Summary: fmt.Sprintf("`%s` timed out after %.1fs", command, elapsed.Seconds()),
			Output:  string(out),
			Elapsed: elapsed,
		}
	}
	if err != nil {
		exit := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exit = exitErr.ExitCode()
		}
		return Stage{
			Name:    stageName,
			Status:  Failed,
			Summary: fmt.Sprintf("`%s` exited %d after %.1fs", command, exit, elapsed.Seconds()),
			Output:  string(out),
			Elapsed: elapsed,
		}
	}
	return Stage{
		Name:    stageName,
		Status:  Passed,
		Summary: fmt.Sprintf("`%s` passed", command),
		Elapsed: elapsed,
	}
}

func (r *Result) record(st Stage) {
	r.Stages = append(r.Stages, st)
	if st.Status == Failed || st.Status == TimedOut {
		r.Success = false
	}
}

// compose builds the aggregate failure message for the next prompt.
func (r *Result) compose() {
	if r.Success {
		return
	}
	var parts []string
	for _, st := range r.Stages {
		if st.Status != Failed && st.Status != TimedOut {
			continue
		}
		part := fmt.Sprintf("%s stage: %s", st.Name, st.Summary)
		if st.Output != "" {
			part += "\n" + strings.TrimSpace(st.Output)
		}
		parts = append(parts, part)
	}
	r.FailureMessage = Truncate(strings.Join(parts, "\n\n"), MaxFailureOutput)
}

// Truncate bounds s to max bytes, appending an explicit marker when cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n...[output truncated]"
}
