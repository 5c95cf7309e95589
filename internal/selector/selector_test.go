package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withakay/ito/internal/testutil"
)

func writeChange(t *testing.T, ito, id, tasksMD string) {
	t.Helper()
	testutil.WriteFile(t, ito, "changes/"+id+"/proposal.md", "# "+id)
	if tasksMD != "" {
		testutil.WriteFile(t, ito, "changes/"+id+"/tasks.md", tasksMD)
	}
}

func TestResolveExistingChange(t *testing.T) {
	ito := t.TempDir()
	writeChange(t, ito, "042-01_demo", "- [ ] a: go\n")

	r := &Repo{ItoPath: ito}
	id, err := r.Resolve("042-01_demo")
	require.NoError(t, err)
	assert.Equal(t, "042-01_demo", id)
}

func TestResolveMissingChange(t *testing.T) {
	r := &Repo{ItoPath: t.TempDir()}
	_, err := r.Resolve("042-99_ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "042-99_ghost")
}

func TestResolveUnsafeID(t *testing.T) {
	r := &Repo{ItoPath: t.TempDir()}
	_, err := r.Resolve("../evil")
	assert.Error(t, err)
}

func TestNextReadyPicksLowestInModule(t *testing.T) {
	ito := t.TempDir()
	writeChange(t, ito, "007-02_b", "- [ ] a: later\n")
	writeChange(t, ito, "007-01_a", "- [ ] a: first\n")
	writeChange(t, ito, "008-01_other", "- [ ] a: other module\n")

	r := &Repo{ItoPath: ito}
	id, err := r.NextReady("007")
	require.NoError(t, err)
	assert.Equal(t, "007-01_a", id)
}

func TestNextReadySkipsCompleteAndBlocked(t *testing.T) {
	ito := t.TempDir()
	writeChange(t, ito, "007-01_a", "- [x] a: done\n")
	writeChange(t, ito, "007-02_b", "---\nstatus: blocked\n---\n- [ ] a: stuck\n")
	writeChange(t, ito, "007-03_c", "- [ ] a: go\n")

	r := &Repo{ItoPath: ito}
	id, err := r.NextReady("007")
	require.NoError(t, err)
	assert.Equal(t, "007-03_c", id)
}

func TestNextReadyBlockedOnlyIsActionableError(t *testing.T) {
	ito := t.TempDir()
	writeChange(t, ito, "007-01_a", "---\nstatus: blocked\n---\n- [ ] a: stuck\n")

	r := &Repo{ItoPath: ito}
	_, err := r.NextReady("007")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "007-01_a (blocked)")
	assert.False(t, errors.Is(err, ErrNoWork))
}

func TestNextReadyAllCompleteIsNoWork(t *testing.T) {
	ito := t.TempDir()
	writeChange(t, ito, "007-01_a", "- [x] a: done\n- [s] b: shelved\n")

	r := &Repo{ItoPath: ito}
	_, err := r.NextReady("007")
	assert.True(t, errors.Is(err, ErrNoWork))
}

func TestNextReadyWholeRepo(t *testing.T) {
	ito := t.TempDir()
	writeChange(t, ito, "042-01_demo", "- [x] a: done\n")
	writeChange(t, ito, "007-01_a", "- [ ] a: go\n")

	r := &Repo{ItoPath: ito}
	id, err := r.NextReady("")
	require.NoError(t, err)
	assert.Equal(t, "007-01_a", id)
}

func TestNextReadyUnknownModule(t *testing.T) {
	ito := t.TempDir()
	writeChange(t, ito, "042-01_demo", "- [ ] a: go\n")

	r := &Repo{ItoPath: ito}
	_, err := r.NextReady("999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "999")
}

// Drift: while 07-01 runs, an external writer blocks 07-02 and adds 07-03.
// The next selection reorients to 07-03.
func TestNextReadyReorientsOnDrift(t *testing.T) {
	ito := t.TempDir()
	writeChange(t, ito, "07-01_a", "- [ ] a: go\n")
	writeChange(t, ito, "07-02_b", "- [ ] a: go\n")

	r := &Repo{ItoPath: ito}
	id, err := r.NextReady("07")
	require.NoError(t, err)
	assert.Equal(t, "07-01_a", id)

	// External actor: 07-01 completes, 07-02 becomes blocked, 07-03 appears.
	testutil.WriteFile(t, ito, "changes/07-01_a/tasks.md", "- [x] a: done\n")
	testutil.WriteFile(t, ito, "changes/07-02_b/tasks.md", "---\nstatus: blocked\n---\n- [ ] a: stuck\n")
	writeChange(t, ito, "07-03_c", "- [ ] a: new\n")

	id, err = r.NextReady("07")
	require.NoError(t, err)
	assert.Equal(t, "07-03_c", id)
}
