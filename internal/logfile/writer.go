// Package logfile writes per-iteration raw harness output under the change's
// state directory.
package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Writer captures one iteration's raw harness output.
type Writer struct {
	file *os.File
}

// New creates a log file named by timestamp and iteration under logsDir.
func New(logsDir string, iteration int) (*Writer, error) {
	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}

	name := fmt.Sprintf("%s-iter%d.log", time.Now().Format("20060102-150405"), iteration)
	path := filepath.Join(logsDir, name)

	f, err := os.Create(path) //nolint:gosec // path is under the controller-owned state dir
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}

	return &Writer{file: f}, nil
}

// Path returns the path to the log file.
func (w *Writer) Path() string {
	return w.file.Name()
}

// Write implements io.Writer, writing raw bytes to the log file.
func (w *Writer) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// Close closes the log file.
func (w *Writer) Close() error {
	return w.file.Close()
}

// Latest returns the newest log file path in logsDir, or "" when none exist.
func Latest(logsDir string) string {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return ""
	}
	var latest string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if latest == "" || e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return ""
	}
	return filepath.Join(logsDir, latest)
}
