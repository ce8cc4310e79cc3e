package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

func newOpsFixture(t *testing.T) (*trackerFixture, *Workspace) {
	t.Helper()
	f := newTrackerFixture(t)
	ws := NewWorkspace(t.TempDir())
	executor := NewExecutor(testLogger())
	require.NoError(t, RegisterBuiltinOperations(f.registry, f.tracker, executor, ws))
	return f, ws
}

func TestRunCommandOperation(t *testing.T) {
	f, _ := newOpsFixture(t)

	ctx := ContextWithWorker(context.Background())
	dispatch, err := f.tracker.Job(ctx, "Run Command", OpRunCommand, domain.Invocation{
		Kwargs: map[string]any{"command": "echo hi"},
	})
	require.NoError(t, err)

	result, ok := dispatch.Value.(domain.CommandResult)
	require.True(t, ok)
	assert.Equal(t, "hi", result.Output)

	steps, err := f.repo.ListSteps(ctx, dispatch.JobID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "Run Command", steps[0].Name)
	assert.Equal(t, domain.StatusSuccess, steps[0].Status)
}

func TestRunCommandOperationFailure(t *testing.T) {
	f, _ := newOpsFixture(t)

	ctx := ContextWithWorker(context.Background())
	dispatch, err := f.tracker.Job(ctx, "Run Command", OpRunCommand, domain.Invocation{
		Kwargs: map[string]any{"command": "exit 3"},
	})

	var cmdErr *domain.CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.NotNil(t, cmdErr.Result.ExitCode)
	assert.Equal(t, 3, *cmdErr.Result.ExitCode)

	job, getErr := f.repo.GetJob(ctx, dispatch.JobID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailure, job.Status)

	steps, listErr := f.repo.ListSteps(ctx, dispatch.JobID)
	require.NoError(t, listErr)
	require.Len(t, steps, 1)
	assert.Equal(t, domain.StatusFailure, steps[0].Status)
}

func TestRunCommandOperationRequiresCommand(t *testing.T) {
	f, _ := newOpsFixture(t)

	ctx := ContextWithWorker(context.Background())
	_, err := f.tracker.Job(ctx, "Run Command", OpRunCommand, domain.Invocation{
		Kwargs: map[string]any{"command": "  "},
	})
	assert.Error(t, err)
}

func TestRunCommandOperationDefaultsDirectory(t *testing.T) {
	f, ws := newOpsFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws.Directory, "marker.txt"), []byte("x"), 0o644))

	ctx := ContextWithWorker(context.Background())
	dispatch, err := f.tracker.Job(ctx, "Run Command", OpRunCommand, domain.Invocation{
		Kwargs: map[string]any{"command": "ls"},
	})
	require.NoError(t, err)

	result, ok := dispatch.Value.(domain.CommandResult)
	require.True(t, ok)
	assert.Equal(t, "marker.txt", result.Output)
	assert.Equal(t, ws.Directory, result.Directory)
}

func TestUpdateConfigOperation(t *testing.T) {
	f, ws := newOpsFixture(t)
	require.NoError(t, ws.WriteConfig(map[string]any{"name": "srv-1", "port": 8080}))

	ctx := ContextWithWorker(context.Background())
	dispatch, err := f.tracker.Job(ctx, "Update Configuration", OpUpdateConfig, domain.Invocation{
		Kwargs: map[string]any{"config": map[string]any{"port": 9090, "tls": true}},
	})
	require.NoError(t, err)

	merged, ok := dispatch.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "srv-1", merged["name"])
	assert.Equal(t, 9090, merged["port"])
	assert.Equal(t, true, merged["tls"])

	cfg, err := ws.Config()
	require.NoError(t, err)
	assert.Equal(t, "srv-1", cfg["name"])
	assert.Equal(t, float64(9090), cfg["port"])
	assert.Equal(t, true, cfg["tls"])

	steps, err := f.repo.ListSteps(ctx, dispatch.JobID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "Update Configuration", steps[0].Name)
}

func TestUpdateConfigOperationRequiresValues(t *testing.T) {
	f, _ := newOpsFixture(t)

	ctx := ContextWithWorker(context.Background())
	_, err := f.tracker.Job(ctx, "Update Configuration", OpUpdateConfig, domain.Invocation{})
	assert.Error(t, err)
}
