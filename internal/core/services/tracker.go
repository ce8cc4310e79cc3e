package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/veldtops/fieldhand/internal/core/domain"
	"github.com/veldtops/fieldhand/internal/core/ports"
)

// Queued jobs get a generous broker-side ceiling and results are retained
// indefinitely; the record in the store is the durable source of truth.
const (
	queueTimeout       = time.Hour
	keepResultsForever = -1
)

// Tracker wraps operations with durable job and step records. It records
// outcomes before propagating them and never swallows an error.
type Tracker struct {
	repo     ports.Repository
	queue    ports.Queue
	registry *Registry
	logger   *slog.Logger
}

func NewTracker(repo ports.Repository, queue ports.Queue, registry *Registry, logger *slog.Logger) *Tracker {
	return &Tracker{repo: repo, queue: queue, registry: registry, logger: logger}
}

// Dispatch reports how a job invocation was carried out: Queued with only
// the record id, or executed inline with the operation's own value.
type Dispatch struct {
	JobID  domain.JobID `json:"job_id"`
	Value  any          `json:"value,omitempty"`
	Queued bool         `json:"queued"`
}

// StepFunc is the body of a step-wrapped sub-operation.
type StepFunc func(ctx context.Context) (any, error)

// Step runs fn as a recorded step under the context's active job. The step
// record is created Running, marked Success with fn's return value, or
// marked Failure with the command's structured data or a captured stack
// trace. The original error is returned unchanged.
func (t *Tracker) Step(ctx context.Context, name string, fn StepFunc) (any, error) {
	jobID, ok := JobFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("step %q invoked outside an active job", name)
	}

	step := domain.NewStep(name, jobID)
	if err := t.repo.SaveStep(ctx, step); err != nil {
		return nil, fmt.Errorf("record step start: %w", err)
	}

	value, err := fn(ctx)
	if err != nil {
		if ferr := step.Fail(failurePayload(err)); ferr != nil {
			t.logger.Error("step transition rejected", "step", name, "error", ferr)
		}
		if serr := t.repo.SaveStep(ctx, step); serr != nil {
			t.logger.Error("failed to record step failure", "step", name, "error", serr)
		}
		return value, err
	}

	if serr := step.Succeed(t.resultPayload(value)); serr != nil {
		t.logger.Error("step transition rejected", "step", name, "error", serr)
	}
	if err := t.repo.SaveStep(ctx, step); err != nil {
		t.logger.Error("failed to record step success", "step", name, "error", err)
		return value, err
	}
	return value, nil
}

// Job runs the named operation with job-level tracking. Inside worker
// context it executes inline and returns the operation's value; outside, it
// persists a Pending record, submits the invocation to the queue, and
// returns only the record id. The operation never runs on this path.
func (t *Tracker) Job(ctx context.Context, name, operation string, inv domain.Invocation) (Dispatch, error) {
	if !InsideWorker(ctx) {
		return t.enqueue(ctx, name, operation, inv)
	}
	return t.runInline(ctx, name, operation, inv)
}

func (t *Tracker) enqueue(ctx context.Context, name, operation string, inv domain.Invocation) (Dispatch, error) {
	// Both processes register the same set, so an unknown name here is a
	// caller mistake, not deployment skew. Reject before anything durable.
	if _, ok := t.registry.Get(operation); !ok {
		return Dispatch{}, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}

	data, err := json.Marshal(map[string]any{
		"operation": operation,
		"args":      inv.Args,
		"kwargs":    inv.Kwargs,
	})
	if err != nil {
		return Dispatch{}, fmt.Errorf("serialize job payload: %w", err)
	}

	job := domain.NewPendingJob(name, data)
	if err := t.repo.SaveJob(ctx, job); err != nil {
		return Dispatch{}, fmt.Errorf("record pending job: %w", err)
	}

	task := ports.Task{
		JobID:      job.ID,
		Name:       name,
		Operation:  operation,
		Invocation: inv,
		Timeout:    queueTimeout,
		ResultTTL:  keepResultsForever,
		EnqueuedAt: job.EnqueuedAt,
	}
	if err := t.queue.Submit(ctx, task); err != nil {
		return Dispatch{}, fmt.Errorf("submit job to queue: %w", err)
	}

	t.logger.Info("job enqueued", "job_id", job.ID, "name", name, "operation", operation)
	return Dispatch{JobID: job.ID, Queued: true}, nil
}

func (t *Tracker) runInline(ctx context.Context, name, operation string, inv domain.Invocation) (Dispatch, error) {
	job, runCtx, err := t.claimJob(ctx, name)
	if err != nil {
		return Dispatch{}, err
	}

	// The record is claimed before the lookup, so a worker that does not
	// know the operation still lands the failure on the job.
	op, ok := t.registry.Get(operation)
	if !ok {
		lookupErr := fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
		if ferr := job.Fail(failurePayload(lookupErr)); ferr != nil {
			t.logger.Error("job transition rejected", "job_id", job.ID, "error", ferr)
		}
		if serr := t.repo.SaveJob(ctx, job); serr != nil {
			t.logger.Error("failed to record job failure", "job_id", job.ID, "error", serr)
		}
		return Dispatch{JobID: job.ID}, lookupErr
	}

	value, opErr := op(runCtx, inv)
	if opErr != nil {
		if ferr := job.Fail(failurePayload(opErr)); ferr != nil {
			t.logger.Error("job transition rejected", "job_id", job.ID, "error", ferr)
		}
		if serr := t.repo.SaveJob(ctx, job); serr != nil {
			t.logger.Error("failed to record job failure", "job_id", job.ID, "error", serr)
		}
		return Dispatch{JobID: job.ID, Value: value}, opErr
	}

	if serr := job.Succeed(t.resultPayload(value)); serr != nil {
		t.logger.Error("job transition rejected", "job_id", job.ID, "error", serr)
	}
	if err := t.repo.SaveJob(ctx, job); err != nil {
		t.logger.Error("failed to record job success", "job_id", job.ID, "error", err)
		return Dispatch{JobID: job.ID, Value: value}, err
	}
	return Dispatch{JobID: job.ID, Value: value}, nil
}

// claimJob adopts the Pending record this worker picked up from the queue,
// or creates a fresh Running record for a nested inline call. The pending id
// is consumed exactly once.
func (t *Tracker) claimJob(ctx context.Context, name string) (domain.Job, context.Context, error) {
	var job domain.Job

	if id, ok := pendingJobFromContext(ctx); ok {
		loaded, err := t.repo.GetJob(ctx, id)
		if err != nil {
			return domain.Job{}, ctx, fmt.Errorf("load pending job: %w", err)
		}
		if err := loaded.Start(); err != nil {
			return domain.Job{}, ctx, fmt.Errorf("start job %s: %w", id, err)
		}
		job = loaded
		ctx = contextWithPendingJob(ctx, "")
	} else {
		job = domain.NewRunningJob(name)
	}

	if err := t.repo.SaveJob(ctx, job); err != nil {
		return domain.Job{}, ctx, fmt.Errorf("record job start: %w", err)
	}
	return job, ContextWithJob(ctx, job.ID), nil
}

// resultPayload maps an operation's return value onto the payload variant:
// command results keep their structure, anything else is serialized as-is.
func (t *Tracker) resultPayload(value any) domain.Payload {
	switch v := value.(type) {
	case nil:
		return domain.Payload{}
	case domain.CommandResult:
		return domain.Payload{Command: &v}
	case *domain.CommandResult:
		return domain.Payload{Command: v}
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.logger.Error("result not serializable", "error", err)
			return domain.Payload{}
		}
		return domain.Payload{Value: raw}
	}
}

// failurePayload maps an error onto the payload variant: command failures
// keep their structured data, anything else gets a captured stack trace.
func failurePayload(err error) domain.Payload {
	var cmdErr *domain.CommandError
	if errors.As(err, &cmdErr) {
		return domain.Payload{Command: &cmdErr.Result, Traceback: cmdErr.Traceback}
	}
	return domain.Payload{Traceback: fmt.Sprintf("%s\n%s", err, debug.Stack())}
}
