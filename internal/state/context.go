package state

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadContext returns the accumulated context notes, or "" when none exist.
func (s *Store) LoadContext() (string, error) {
	data, err := os.ReadFile(s.ContextPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading context: %w", err)
	}
	return string(data), nil
}

// AppendContext appends a note to the accumulator, terminated with a newline.
// Whitespace-only additions are no-ops.
func (s *Store) AppendContext(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	f, err := os.OpenFile(s.ContextPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening context: %w", err)
	}
	defer f.Close() //nolint:errcheck // append-only writer, Write error checked

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("appending context: %w", err)
	}
	return nil
}

// ClearContext removes the accumulator file. Missing file is not an error.
func (s *Store) ClearContext() error {
	if err := os.Remove(s.ContextPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing context: %w", err)
	}
	return nil
}
