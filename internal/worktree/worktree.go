// Package worktree resolves the effective working directory for a change by
// matching git worktree branches against the change id.
package worktree

import (
	"fmt"
	"path/filepath"

	"github.com/withakay/ito/internal/config"
	"github.com/withakay/ito/internal/git"
)

// Resolution reports where the loop will run and why.
type Resolution struct {
	Dir string
	// Matched is true when a worktree whose branch equals the change id was
	// found; Dir is then that worktree's path.
	Matched bool
	// Note carries a human-readable explanation when resolution fell back to
	// the process CWD while worktrees were enabled.
	Note string
}

// Resolve returns the effective working directory. Discovery is driven by
// real git state: when the policy enables worktrees and a change is targeted,
// the first non-bare worktree checked out on a branch equal to the change id
// wins. In every other case the process CWD is returned. The policy's
// strategy and layout dir shape the note only, never the chosen path.
func Resolve(cwd, changeID string, policy config.Worktree) (*Resolution, error) {
	if !policy.Enabled || changeID == "" {
		return &Resolution{Dir: cwd}, nil
	}

	worktrees, err := git.Worktrees(cwd)
	if err != nil {
		return nil, fmt.Errorf("enumerating worktrees: %w", err)
	}

	for _, wt := range worktrees {
		if wt.Bare {
			continue
		}
		if wt.Branch == changeID {
			return &Resolution{Dir: wt.Path, Matched: true}, nil
		}
	}

	return &Resolution{
		Dir:  cwd,
		Note: fmt.Sprintf("no worktree has branch %q checked out (expected around %s); running in %s", changeID, expectedPath(cwd, changeID, policy), cwd),
	}, nil
}

// expectedPath guesses where the policy would place the change's worktree.
// Used for error messages only.
func expectedPath(cwd, changeID string, policy config.Worktree) string {
	switch policy.Strategy {
	case config.CheckoutSiblings, config.BareControlSiblings:
		return filepath.Join(filepath.Dir(cwd), changeID)
	default:
		return filepath.Join(cwd, policy.Dir, changeID)
	}
}
