package ports

import (
	"context"
	"errors"
	"time"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

// Repository abstracts the persistent store (DuckDB). Records are owned and
// mutated by the call chain that created them; the store implements no
// record-level locking.
type Repository interface {
	// SaveJob inserts the job or updates its mutable columns.
	SaveJob(ctx context.Context, job domain.Job) error

	// GetJob retrieves a job by id. Returns domain.ErrJobNotFound when absent.
	GetJob(ctx context.Context, id domain.JobID) (domain.Job, error)

	// ListJobs returns jobs matching the filter, newest enqueue first.
	ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error)

	// SaveStep inserts the step or updates its mutable columns.
	SaveStep(ctx context.Context, step domain.Step) error

	// ListSteps returns the steps of one job in start order.
	ListSteps(ctx context.Context, jobID domain.JobID) ([]domain.Step, error)
}

// JobFilter narrows ListJobs. The zero value matches everything.
type JobFilter struct {
	Status domain.Status
	Limit  int
}

// Task is the envelope handed to the external queue. ResultTTL of -1 asks
// the broker to retain results indefinitely.
type Task struct {
	JobID      domain.JobID      `json:"job_id"`
	Name       string            `json:"name"`
	Operation  string            `json:"operation"`
	Invocation domain.Invocation `json:"invocation"`
	Timeout    time.Duration     `json:"timeout"`
	ResultTTL  int               `json:"result_ttl"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

// ErrNoTask is returned by Receive when nothing arrived within the blocking
// window, so callers can re-check their context and poll again.
var ErrNoTask = errors.New("no task available")

// Queue abstracts the external work-distribution broker. Submit is
// non-blocking for job dispatch; Receive blocks briefly on the worker side.
type Queue interface {
	Submit(ctx context.Context, task Task) error
	Receive(ctx context.Context) (Task, error)
}
