package logfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterCreatesAndWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	w, err := New(dir, 3)
	require.NoError(t, err)

	_, err = w.Write([]byte("captured output"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Contains(t, w.Path(), "iter3")

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, "captured output", string(data))
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Latest(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101-000000-iter1.log"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250102-000000-iter2.log"), []byte("b"), 0o600))

	assert.Equal(t, filepath.Join(dir, "20250102-000000-iter2.log"), Latest(dir))
}

func TestLatestMissingDir(t *testing.T) {
	assert.Empty(t, Latest(filepath.Join(t.TempDir(), "nope")))
}
