package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/withakay/ito/internal/logfile"
	"github.com/withakay/ito/internal/state"
	"github.com/withakay/ito/internal/tasks"
)

// historyTail is how many recent iterations status prints.
const historyTail = 5

// printStatus renders the latest ralph state and task progress for a change.
//
//nolint:errcheck // display output, best-effort writes
func printStatus(w io.Writer, itoPath, changeID string) error {
	store, err := state.NewStore(itoPath, changeID)
	if err != nil {
		return err //nolint:wrapcheck // unsafe-id errors are user-facing
	}
	st, err := store.Load()
	if err != nil {
		return err //nolint:wrapcheck // state errors carry the file path
	}

	fmt.Fprintf(w, "Change:    %s\n", changeID)
	fmt.Fprintf(w, "Iteration: %d\n", st.Iteration)
	fmt.Fprintf(w, "Outcome:   %s\n", st.LastOutcome)

	list, err := tasks.ParseFile(filepath.Join(itoPath, "changes", changeID, "tasks.md"))
	if err != nil {
		return err //nolint:wrapcheck // parse errors carry context
	}
	if c := list.Counts(); c.Total > 0 {
		done := c.Complete + c.Shelved
		fmt.Fprintf(w, "\nTasks:  %d/%d complete (%d pending, %d in progress, %d shelved)\n",
			done, c.Total, c.Pending, c.InProgress, c.Shelved)
	}

	if len(st.History) > 0 {
		fmt.Fprintln(w, "\nRecent iterations:")
		start := len(st.History) - historyTail
		if start < 0 {
			start = 0
		}
		for _, row := range st.History[start:] {
			marker := "·"
			switch {
			case row.PromiseDetected && row.ValidationPassed:
				marker = "✓"
			case row.PromiseDetected:
				marker = "✗"
			case row.ExitCode != 0:
				marker = "!"
			}
			fmt.Fprintf(w, "  %s #%-3d exit=%-4d %-8s changes=%d promise=%v\n",
				marker, row.Iteration, row.ExitCode,
				(time.Duration(row.DurationMs) * time.Millisecond).String(),
				row.GitChanges, row.PromiseDetected)
		}
	}

	if latest := logfile.Latest(filepath.Join(store.Dir(), "logs")); latest != "" {
		fmt.Fprintf(w, "\nLatest log: %s\n", latest)
	}
	return nil
}
