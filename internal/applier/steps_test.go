package applier

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackmesh/stackmesh/internal/deploy"
)

type fakeWaiter struct {
	models []string
	err    error
}

func (w *fakeWaiter) WaitUntilActive(_ context.Context, model string) error {
	w.models = append(w.models, model)
	return w.err
}

// scriptedRun fails the first n invocations of a given op.
type scriptedRun struct {
	failFirst int
	calls     []string
}

func (r *scriptedRun) run(_ context.Context, _, _ string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, args[0])
	if len(r.calls) <= r.failFirst {
		return []byte("Error: connection refused"), errors.New("exit status 1")
	}
	return nil, nil
}

func newTestDeployStep(t *testing.T, rec *scriptedRun, waiter ModelWaiter) (*DeployControlPlaneStep, string) {
	t.Helper()
	dir := t.TempDir()
	h := NewHelper(dir)
	h.run = rec.run
	step := NewDeployControlPlaneStep(h, waiter, "control-plane", "stackmesh-cloud")
	step.retryDelay = time.Millisecond
	return step, dir
}

func TestInitStepRunsEveryTime(t *testing.T) {
	t.Parallel()

	rec := &scriptedRun{}
	h := NewHelper(t.TempDir())
	h.run = rec.run
	step := NewInitStep(h)

	assert.False(t, step.Skip(context.Background()))
	result := step.Run(context.Background())
	assert.Equal(t, deploy.Completed, result.Type)
	assert.Equal(t, []string{"init"}, rec.calls)
}

func TestInitStepFailure(t *testing.T) {
	t.Parallel()

	rec := &scriptedRun{failFirst: 1}
	h := NewHelper(t.TempDir())
	h.run = rec.run
	step := NewInitStep(h)

	result := step.Run(context.Background())
	assert.Equal(t, deploy.Failed, result.Type)
	assert.Contains(t, result.Message, "applier init failed")
}

func TestDeployControlPlaneWritesVarsAndWaits(t *testing.T) {
	t.Parallel()

	rec := &scriptedRun{}
	waiter := &fakeWaiter{}
	step, dir := newTestDeployStep(t, rec, waiter)

	result := step.Run(context.Background())
	assert.Equal(t, deploy.Completed, result.Type)

	data, err := os.ReadFile(filepath.Join(dir, "terraform.tfvars.json"))
	require.NoError(t, err)
	var vars map[string]string
	require.NoError(t, json.Unmarshal(data, &vars))
	assert.Equal(t, "control-plane", vars["model"])
	assert.Equal(t, "stackmesh-cloud", vars["cloud"])

	assert.Equal(t, []string{"apply"}, rec.calls)
	assert.Equal(t, []string{"control-plane"}, waiter.models)
}

func TestDeployControlPlaneRetriesTransientApply(t *testing.T) {
	t.Parallel()

	rec := &scriptedRun{failFirst: 2}
	waiter := &fakeWaiter{}
	step, _ := newTestDeployStep(t, rec, waiter)

	result := step.Run(context.Background())
	assert.Equal(t, deploy.Completed, result.Type)
	assert.Equal(t, []string{"apply", "apply", "apply"}, rec.calls)
	assert.Equal(t, []string{"control-plane"}, waiter.models)
}

func TestDeployControlPlaneFailsAfterRetryBudget(t *testing.T) {
	t.Parallel()

	rec := &scriptedRun{failFirst: 10}
	waiter := &fakeWaiter{}
	step, _ := newTestDeployStep(t, rec, waiter)

	result := step.Run(context.Background())
	assert.Equal(t, deploy.Failed, result.Type)
	assert.Contains(t, result.Message, "applier apply failed")
	assert.Len(t, rec.calls, 3)
	assert.Empty(t, waiter.models)
}

func TestDeployControlPlaneFailsWhenModelNeverSettles(t *testing.T) {
	t.Parallel()

	rec := &scriptedRun{}
	waiter := &fakeWaiter{err: errors.New("context deadline exceeded")}
	step, _ := newTestDeployStep(t, rec, waiter)

	result := step.Run(context.Background())
	assert.Equal(t, deploy.Failed, result.Type)
	assert.Contains(t, result.Message, "waiting for model control-plane to settle")
}
