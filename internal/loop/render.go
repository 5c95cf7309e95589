package loop

import (
	"fmt"
	"io"

	"github.com/withakay/ito/internal/proc"
	"github.com/withakay/ito/internal/validate"
)

// ANSI escape codes used by the renderer.
const (
	Reset      = "\033[0m"
	Dim        = "\033[2m"
	White      = "\033[37m"
	Yellow     = "\033[33m"
	Magenta    = "\033[35m"
	BoldWhite  = "\033[1;37m"
	BoldCyan   = "\033[1;36m"
	BoldGreen  = "\033[1;32m"
	BoldYellow = "\033[1;33m"
	BoldRed    = "\033[1;31m"
	BoldBlue   = "\033[1;34m"
)

// renderer writes the human-facing progress display. With color disabled all
// escape codes collapse to empty strings.
type renderer struct {
	w     io.Writer
	color bool
}

func newRenderer(w io.Writer, color bool) *renderer {
	return &renderer{w: w, color: color}
}

func (r *renderer) c(code string) string {
	if !r.color {
		return ""
	}
	return code
}

// Header prints the configuration bar at the start of a change's loop.
//
//nolint:errcheck // display-only writes to terminal
func (r *renderer) Header(changeID, dir string, opts *Options) {
	bar := r.c(BoldBlue) + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━" + r.c(Reset)

	fmt.Fprintln(r.w, bar)
	fmt.Fprintf(r.w, "  %sChange%s   %s%s%s\n", r.c(Dim), r.c(Reset), r.c(BoldCyan), changeID, r.c(Reset))
	fmt.Fprintf(r.w, "  %sHarness%s  %s%s%s\n", r.c(Dim), r.c(Reset), r.c(White), opts.Harness.Name(), r.c(Reset))
	fmt.Fprintf(r.w, "  %sCwd%s      %s%s%s\n", r.c(Dim), r.c(Reset), r.c(White), dir, r.c(Reset))
	fmt.Fprintf(r.w, "  %sMax%s      %s%d iterations%s\n", r.c(Dim), r.c(Reset), r.c(White), opts.MaxIterations, r.c(Reset))
	fmt.Fprintln(r.w, bar)
}

// Banner prints the iteration box.
//
//nolint:errcheck // display-only writes to terminal
func (r *renderer) Banner(iteration, maxIterations int) {
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "  %s╔══════════════════════════════════════╗%s\n", r.c(BoldGreen), r.c(Reset))
	fmt.Fprintf(r.w, "  %s║%s  RALPH  %s#%d of %d%s\n", r.c(BoldGreen), r.c(Reset), r.c(BoldWhite), iteration, maxIterations, r.c(Reset))
	fmt.Fprintf(r.w, "  %s╚══════════════════════════════════════╝%s\n", r.c(BoldGreen), r.c(Reset))
	fmt.Fprintln(r.w)
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) NoWork(module string) {
	if module == "" {
		fmt.Fprintf(r.w, "%sNo non-complete work remains.%s\n", r.c(BoldGreen), r.c(Reset))
		return
	}
	fmt.Fprintf(r.w, "%sNo non-complete work remains in module %s.%s\n", r.c(BoldGreen), module, r.c(Reset))
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) NoChanges() {
	fmt.Fprintf(r.w, "%sNo working-tree changes this iteration%s\n", r.c(BoldYellow), r.c(Reset))
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) RetriableCrash(code, count, budget int) {
	fmt.Fprintf(r.w, "%sHarness crashed (exit %d)%s %s(retriable: %d/%d)%s\n",
		r.c(BoldYellow), code, r.c(Reset), r.c(Dim), count, budget, r.c(Reset))
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) HarnessError(hres *proc.Result, count, threshold int) {
	label := fmt.Sprintf("exit %d", hres.ExitCode)
	if hres.TimedOut {
		label = "inactivity timeout"
	}
	fmt.Fprintf(r.w, "%sHarness failed (%s)%s %s(errors: %d/%d)%s\n",
		r.c(BoldRed), label, r.c(Reset), r.c(Dim), count, threshold, r.c(Reset))
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) SkipValidationWarning() {
	fmt.Fprintf(r.w, "%sWARNING: completion promise accepted without validation (--skip-validation)%s\n",
		r.c(BoldYellow), r.c(Reset))
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) Validation(res *validate.Result) {
	for _, st := range res.Stages {
		switch st.Status {
		case validate.Skipped:
			continue
		case validate.Passed:
			fmt.Fprintf(r.w, "  %s✓%s %s: %s\n", r.c(BoldGreen), r.c(Reset), st.Name, st.Summary)
		default:
			fmt.Fprintf(r.w, "  %s✗%s %s: %s\n", r.c(BoldRed), r.c(Reset), st.Name, st.Summary)
		}
	}
	if !res.Success {
		fmt.Fprintf(r.w, "%sCompletion rejected; failure fed into next iteration%s\n", r.c(BoldRed), r.c(Reset))
	}
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) PromiseWithheld(iteration, minIterations int) {
	fmt.Fprintf(r.w, "%sPromise accepted but withheld: iteration %d < min %d%s\n",
		r.c(BoldYellow), iteration, minIterations, r.c(Reset))
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) MaxIterations(max int) {
	fmt.Fprintf(r.w, "%sReached max iterations: %d%s\n", r.c(BoldYellow), max, r.c(Reset))
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) Done(changeID string, iteration int) {
	fmt.Fprintf(r.w, "\n%sDone:%s %s completed after %d iteration(s)\n", r.c(BoldGreen), r.c(Reset), changeID, iteration)
}

//nolint:errcheck // display-only writes to terminal
func (r *renderer) Abort(err error) {
	fmt.Fprintf(r.w, "\n%sAborted:%s %v\n", r.c(BoldRed), r.c(Reset), err)
}
