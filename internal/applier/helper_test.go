package applier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRun captures invocations and replays canned results.
type recordingRun struct {
	dirs   []string
	calls  [][]string
	output []byte
	err    error
}

func (r *recordingRun) run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	r.dirs = append(r.dirs, dir)
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output, r.err
}

func TestWriteVars(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := NewHelper(dir)

	require.NoError(t, h.WriteVars(map[string]any{
		"model": "control-plane",
		"cloud": "stackmesh-cloud",
	}))

	data, err := os.ReadFile(filepath.Join(dir, "terraform.tfvars.json"))
	require.NoError(t, err)

	var vars map[string]string
	require.NoError(t, json.Unmarshal(data, &vars))
	assert.Equal(t, map[string]string{
		"model": "control-plane",
		"cloud": "stackmesh-cloud",
	}, vars)
}

func TestWriteVarsReplacesPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := NewHelper(dir)

	require.NoError(t, h.WriteVars(map[string]any{"model": "old"}))
	require.NoError(t, h.WriteVars(map[string]any{"model": "new"}))

	data, err := os.ReadFile(filepath.Join(dir, "terraform.tfvars.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"new"`)
	assert.NotContains(t, string(data), `"old"`)
}

func TestInitCommandLine(t *testing.T) {
	t.Parallel()

	rec := &recordingRun{}
	h := NewHelper("/deploy")
	h.run = rec.run

	require.NoError(t, h.Init(context.Background()))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{"terraform", "init", "-upgrade", "-no-color", "-input=false"}, rec.calls[0])
	assert.Equal(t, []string{"/deploy"}, rec.dirs)
}

func TestApplyCommandLine(t *testing.T) {
	t.Parallel()

	rec := &recordingRun{}
	h := NewHelper("/deploy")
	h.Parallelism = 4
	h.run = rec.run

	require.NoError(t, h.Apply(context.Background()))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{
		"terraform", "apply", "-auto-approve", "-no-color", "-input=false", "-parallelism=4",
	}, rec.calls[0])
}

func TestApplyErrorCarriesOutputTail(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 1")
	rec := &recordingRun{
		output: []byte("Initializing...\nError: provider authentication failed\n"),
		err:    cause,
	}
	h := NewHelper(t.TempDir())
	h.run = rec.run

	err := h.Apply(context.Background())
	require.Error(t, err)

	var applyErr *ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "apply", applyErr.Op)
	assert.Contains(t, applyErr.Output, "provider authentication failed")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "applier apply failed")
}

func TestApplyErrorTruncatesLongOutput(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	rec := &recordingRun{
		output: []byte(strings.Join(lines, "\n")),
		err:    errors.New("exit status 1"),
	}
	h := NewHelper(t.TempDir())
	h.run = rec.run

	err := h.Init(context.Background())
	var applyErr *ApplyError
	require.ErrorAs(t, err, &applyErr)

	assert.NotContains(t, applyErr.Output, "line 0")
	assert.Contains(t, applyErr.Output, "line 49")
	assert.Len(t, strings.Split(applyErr.Output, "\n"), outputTailLines)
}
