package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/veldtops/fieldhand/internal/core/ports"
)

const receiveRetryDelay = time.Second

// Worker consumes queued tasks and executes them inline through the
// Tracker. One task at a time: step ordering within a job is the invocation
// order of the job's logic, and parallelism comes from running more worker
// processes, not goroutines.
type Worker struct {
	queue   ports.Queue
	tracker *Tracker
	logger  *slog.Logger
}

func NewWorker(queue ports.Queue, tracker *Tracker, logger *slog.Logger) *Worker {
	return &Worker{queue: queue, tracker: tracker, logger: logger}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		task, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopped")
				return nil
			}
			if errors.Is(err, ports.ErrNoTask) {
				continue
			}
			w.logger.Error("receive task failed", "error", err)
			select {
			case <-ctx.Done():
				w.logger.Info("worker stopped")
				return nil
			case <-time.After(receiveRetryDelay):
			}
			continue
		}
		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task ports.Task) {
	w.logger.Info("task received", "job_id", task.JobID, "name", task.Name, "operation", task.Operation)

	runCtx := ContextWithWorker(ctx)
	runCtx = contextWithPendingJob(runCtx, task.JobID)
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, task.Timeout)
		defer cancel()
	}

	if _, err := w.tracker.Job(runCtx, task.Name, task.Operation, task.Invocation); err != nil {
		// The failure is already durable on the job record; retry is the
		// broker's or the caller's business.
		w.logger.Error("job failed", "job_id", task.JobID, "name", task.Name, "error", err)
		return
	}
	w.logger.Info("job completed", "job_id", task.JobID, "name", task.Name)
}
