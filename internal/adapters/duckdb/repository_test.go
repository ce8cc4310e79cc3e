package duckdb

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtops/fieldhand/internal/core/domain"
	"github.com/veldtops/fieldhand/internal/core/ports"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndGetJob(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	job := domain.NewPendingJob("Deploy", json.RawMessage(`{"operation":"deploy.run"}`))
	require.NoError(t, repo.SaveJob(ctx, job))

	got, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "Deploy", got.Name)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.JSONEq(t, `{"operation":"deploy.run"}`, string(got.Data))
	assert.WithinDuration(t, job.EnqueuedAt, got.EnqueuedAt, time.Millisecond)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.EndedAt)
	assert.Zero(t, got.Duration)
}

func TestSaveJobUpsertsTransitions(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	job := domain.NewPendingJob("Deploy", nil)
	require.NoError(t, repo.SaveJob(ctx, job))

	require.NoError(t, job.Start())
	require.NoError(t, repo.SaveJob(ctx, job))
	require.NoError(t, job.Succeed(domain.Payload{Value: json.RawMessage(`"done"`)}))
	require.NoError(t, repo.SaveJob(ctx, job))

	got, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, got.Status)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.EndedAt)
	assert.JSONEq(t, `{"value":"done"}`, string(got.Data))
}

func TestGetJobNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetJob(context.Background(), domain.JobID("missing"))
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestListJobsOrderAndFilter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	first := domain.NewPendingJob("first", nil)
	first.EnqueuedAt = base
	second := domain.NewPendingJob("second", nil)
	second.EnqueuedAt = base.Add(time.Minute)
	third := domain.NewRunningJob("third")
	third.EnqueuedAt = base.Add(2 * time.Minute)

	for _, job := range []domain.Job{first, second, third} {
		require.NoError(t, repo.SaveJob(ctx, job))
	}

	all, err := repo.ListJobs(ctx, ports.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Name)
	assert.Equal(t, "second", all[1].Name)
	assert.Equal(t, "first", all[2].Name)

	pending, err := repo.ListJobs(ctx, ports.JobFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "second", pending[0].Name)

	limited, err := repo.ListJobs(ctx, ports.JobFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "third", limited[0].Name)
}

func TestDurationRoundTripsSubMillisecond(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	job := domain.NewRunningJob("Deploy")
	require.NoError(t, job.Succeed(domain.Payload{}))
	job.Duration = 1500 * time.Microsecond
	require.NoError(t, repo.SaveJob(ctx, job))

	got, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Microsecond, got.Duration)

	step := domain.NewStep("Run Command", job.ID)
	require.NoError(t, step.Succeed(domain.Payload{}))
	step.Duration = 250 * time.Microsecond
	require.NoError(t, repo.SaveStep(ctx, step))

	steps, err := repo.ListSteps(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 250*time.Microsecond, steps[0].Duration)
}

func TestStepsRoundTripInStartOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	jobID := domain.JobID("job-1")
	first := domain.NewStep("Run Command", jobID)
	first.StartedAt = time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	second := domain.NewStep("Update Configuration", jobID)
	second.StartedAt = first.StartedAt.Add(time.Second)

	require.NoError(t, repo.SaveStep(ctx, first))
	require.NoError(t, repo.SaveStep(ctx, second))

	require.NoError(t, first.Succeed(domain.Payload{Value: json.RawMessage(`"ok"`)}))
	require.NoError(t, repo.SaveStep(ctx, first))

	steps, err := repo.ListSteps(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "Run Command", steps[0].Name)
	assert.Equal(t, domain.StatusSuccess, steps[0].Status)
	require.NotNil(t, steps[0].EndedAt)
	assert.Equal(t, "Update Configuration", steps[1].Name)
	assert.Equal(t, domain.StatusRunning, steps[1].Status)

	other, err := repo.ListSteps(ctx, domain.JobID("job-2"))
	require.NoError(t, err)
	assert.Empty(t, other)
}
