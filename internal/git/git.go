// Package git wraps the git subprocess operations the ralph loop depends on.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Head returns the current HEAD commit hash in dir.
func Head(dir string) (string, error) {
	out, err := run(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Branch returns the current branch name in dir.
func Branch(dir string) (string, error) {
	out, err := run(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RepoRoot returns the top-level directory of the repo containing dir.
func RepoRoot(dir string) (string, error) {
	out, err := run(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CountChanges returns the number of working-tree changes reported by
// git status --porcelain (staged, unstaged and untracked entries).
func CountChanges(dir string) (int, error) {
	out, err := run(dir, "status", "--porcelain")
	if err != nil {
		return 0, err
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return 0, nil
	}
	return len(strings.Split(trimmed, "\n")), nil
}

// AddAll stages every change in dir.
func AddAll(dir string) error {
	_, err := run(dir, "add", "-A")
	return err
}

// Commit creates a commit with the given message in dir.
func Commit(dir, message string) error {
	_, err := run(dir, "commit", "-m", message)
	return err
}

// Worktree describes one entry from git worktree list --porcelain.
type Worktree struct {
	Path   string
	Branch string // short name, empty when detached
	Bare   bool
}

// Worktrees enumerates the worktrees of the repo containing dir.
func Worktrees(dir string) ([]Worktree, error) {
	out, err := run(dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktrees(out), nil
}

// parseWorktrees parses porcelain worktree output. Entries are separated by
// blank lines; branch refs arrive fully qualified (refs/heads/<name>).
func parseWorktrees(out string) []Worktree {
	var (
		worktrees []Worktree
		current   Worktree
		open      bool
	)
	flush := func() {
		if open {
			worktrees = append(worktrees, current)
			current = Worktree{}
			open = false
		}
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current.Path = strings.TrimPrefix(line, "worktree ")
			open = true
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "bare":
			current.Bare = true
		case line == "detached":
			current.Branch = ""
		}
	}
	flush()
	return worktrees
}

func run(dir string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("git: no subcommand specified")
	}
	cmd := exec.CommandContext(context.Background(), "git", args...) //nolint:gosec // args are hardcoded by callers in this package
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
