// Package selector resolves run targets (--change, --module, continue modes)
// to concrete change ids, re-enumerating between changes so continuation
// modes track upstream drift.
package selector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/withakay/ito/internal/state"
	"github.com/withakay/ito/internal/tasks"
)

// Mode is how the caller named the work to run.
type Mode int

// Target modes.
const (
	ModeChange Mode = iota
	ModeModule
	ModeContinueModule
	ModeContinueReady
)

// Target pairs a mode with its id (change id or module id; unused for
// ModeContinueReady).
type Target struct {
	Mode Mode
	ID   string
}

// Continues reports whether the target keeps selecting changes until the
// module (or repository) has no non-complete work left.
func (t Target) Continues() bool {
	return t.Mode == ModeContinueModule || t.Mode == ModeContinueReady
}

// ErrNoWork is returned by NextReady when every change in scope is complete.
// Continuation modes treat it as successful exhaustion.
var ErrNoWork = errors.New("no non-complete work remains")

// Repo enumerates change directories under <ito>/changes.
type Repo struct {
	ItoPath string
}

// Resolve checks an explicitly named change: segment safety first, then
// existence of its change directory.
func (r *Repo) Resolve(changeID string) (string, error) {
	if err := state.ValidateChangeID(changeID); err != nil {
		return "", err
	}
	dir := filepath.Join(r.ItoPath, "changes", changeID)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("change %q not found under %s", changeID, filepath.Join(r.ItoPath, "changes"))
		}
		return "", fmt.Errorf("checking change %q: %w", changeID, err)
	}
	return changeID, nil
}

// NextReady returns the lowest ready change id, scoped to module when module
// is non-empty. Readiness is revalidated on every call: a change is ready
// when its tasks.md is present, not blocked, and has pending or in-progress
// work. When nothing is ready but non-complete work remains, the error lists
// it; when everything is complete, ErrNoWork is returned.
func (r *Repo) NextReady(module string) (string, error) {
	ids, err := r.changeIDs()
	if err != nil {
		return "", err
	}
	if module != "" {
		ids = filterModule(ids, module)
		if len(ids) == 0 {
			return "", fmt.Errorf("module %q has no changes under %s", module, filepath.Join(r.ItoPath, "changes"))
		}
	}

	var ready, waiting []string
	for _, id := range ids {
		list, err := tasks.ParseFile(filepath.Join(r.ItoPath, "changes", id, "tasks.md"))
		if err != nil {
			return "", fmt.Errorf("change %s: %w", id, err)
		}
		switch {
		case len(list.Tasks) == 0 || list.Done():
			// nothing actionable
		case list.Blocked:
			waiting = append(waiting, id+" (blocked)")
		default:
			ready = append(ready, id)
		}
	}

	if len(ready) > 0 {
		return ready[0], nil
	}
	if len(waiting) > 0 {
		return "", fmt.Errorf("no ready changes, but non-complete work remains: %s", strings.Join(waiting, ", "))
	}
	return "", ErrNoWork
}

// changeIDs lists change directories in canonical ascending order, skipping
// entries that fail the segment-safety rule.
func (r *Repo) changeIDs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.ItoPath, "changes"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no changes directory under %s", r.ItoPath)
		}
		return nil, fmt.Errorf("reading changes: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if state.ValidateChangeID(e.Name()) != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func filterModule(ids []string, module string) []string {
	var out []string
	for _, id := range ids {
		if state.ModuleOf(id) == module {
			out = append(out, id)
		}
	}
	return out
}
