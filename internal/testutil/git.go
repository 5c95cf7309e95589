// Package testutil provides shared git test helpers for use across packages.
// It is not a _test.go file so it can be imported by test files in other packages.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RunGit runs a git command in dir, failing the test on error.
func RunGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.CommandContext(context.Background(), "git", args...) //nolint:gosec // args are test-controlled
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %s\n%s", strings.Join(args, " "), err, out)
	}
}

// InitRepo creates a git repo in a temp dir with an initial commit and
// identity configured. Returns the repo path.
func InitRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	RunGit(t, dir, "init", "--initial-branch=main")
	RunGit(t, dir, "config", "user.name", "test")
	RunGit(t, dir, "config", "user.email", "test@test.com")
	RunGit(t, dir, "config", "commit.gpgsign", "false")
	RunGit(t, dir, "commit", "--allow-empty", "-m", "init")
	return dir
}

// AddWorktree checks out a new branch of repo into a sibling worktree and
// returns its path.
func AddWorktree(t *testing.T, repo, branch string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), branch)
	RunGit(t, repo, "worktree", "add", "-b", branch, path)
	return path
}

// WriteFile writes content under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir %s: %s", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %s", path, err)
	}
	return path
}
