package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

func TestWorkerRunStopsOnCancel(t *testing.T) {
	f := newTrackerFixture(t)
	worker := NewWorker(f.queue, f.tracker, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorkerRunProcessesQueuedTask(t *testing.T) {
	f := newTrackerFixture(t)

	ran := make(chan struct{})
	require.NoError(t, f.registry.Register("deploy.run", func(context.Context, domain.Invocation) (any, error) {
		close(ran)
		return "done", nil
	}))

	dispatch, err := f.tracker.Job(context.Background(), "Deploy", "deploy.run", domain.Invocation{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := NewWorker(f.queue, f.tracker, testLogger())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("queued task was not processed")
	}

	require.Eventually(t, func() bool {
		job, err := f.repo.GetJob(context.Background(), dispatch.JobID)
		return err == nil && job.Status == domain.StatusSuccess
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
