// Package prompt assembles the per-iteration prompt handed to the harness.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultCompletionToken is the literal the agent emits to claim done.
const DefaultCompletionToken = "<promise>COMPLETE</promise>"

// Builder loads change artifacts for one change id.
type Builder struct {
	ItoPath  string
	ChangeID string
}

// Input carries the per-iteration pieces of the prompt.
type Input struct {
	Iteration          int
	MaxIterations      int
	CompletionToken    string
	AccumulatedContext string
	// ValidationFailure is the previous iteration's aggregate failure message.
	// Present iff that iteration detected a promise but failed validation.
	ValidationFailure string
	UserPrompt        string
}

// Build assembles the prompt. Section order is fixed: iteration header,
// completion-token instruction, proposal, module context, accumulated
// context, validation failure, then the user prompt — the failure section
// sits before the user prompt so the agent lands on the concrete failure
// first. Artifact files absent from the filesystem are silently skipped.
func (b *Builder) Build(in *Input) (string, error) {
	token := in.CompletionToken
	if token == "" {
		token = DefaultCompletionToken
	}

	var sections []string
	sections = append(sections, fmt.Sprintf("iteration %d of %d", in.Iteration, in.MaxIterations))
	sections = append(sections, fmt.Sprintf(
		"When every task for this change is fully complete and validated, output the exact token %s on its own line. Do not output it otherwise.", token))

	changeDir := filepath.Join(b.ItoPath, "changes", b.ChangeID)
	proposal, err := readOptional(filepath.Join(changeDir, "proposal.md"))
	if err != nil {
		return "", err
	}
	if proposal != "" {
		sections = append(sections, "## Change Proposal\n\n"+proposal)
	}

	module, err := readOptional(filepath.Join(changeDir, "module.md"))
	if err != nil {
		return "", err
	}
	if module != "" {
		sections = append(sections, "## Module Context\n\n"+module)
	}

	if strings.TrimSpace(in.AccumulatedContext) != "" {
		sections = append(sections, "## Accumulated Context\n\n"+strings.TrimSpace(in.AccumulatedContext))
	}

	if in.ValidationFailure != "" {
		sections = append(sections, "## Validation Failure (completion rejected)\n\n"+in.ValidationFailure)
	}

	if strings.TrimSpace(in.UserPrompt) != "" {
		sections = append(sections, in.UserPrompt)
	}

	return strings.Join(sections, "\n\n"), nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from a validated change id
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
