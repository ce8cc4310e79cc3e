package services

import (
	"context"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

// Use a private type for context keys to avoid collisions
type serviceContextKey string

const (
	ctxKeyWorker     serviceContextKey = "worker"
	ctxKeyCurrentJob serviceContextKey = "current_job"
	ctxKeyPendingJob serviceContextKey = "pending_job"
)

// ContextWithWorker marks ctx as executing inside a queue worker. Job
// wrappers seeing this flag run inline instead of enqueueing.
func ContextWithWorker(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyWorker, true)
}

// InsideWorker reports whether ctx belongs to a worker execution.
func InsideWorker(ctx context.Context) bool {
	inside, ok := ctx.Value(ctxKeyWorker).(bool)
	return ok && inside
}

// ContextWithJob injects the currently active job id into the context.
func ContextWithJob(ctx context.Context, id domain.JobID) context.Context {
	return context.WithValue(ctx, ctxKeyCurrentJob, id)
}

// JobFromContext retrieves the currently active job id from the context.
func JobFromContext(ctx context.Context) (domain.JobID, bool) {
	id, ok := ctx.Value(ctxKeyCurrentJob).(domain.JobID)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// contextWithPendingJob attaches the id of a Pending record picked up from
// the queue. The tracker consumes it exactly once, so nested job calls made
// by the running operation get fresh records.
func contextWithPendingJob(ctx context.Context, id domain.JobID) context.Context {
	return context.WithValue(ctx, ctxKeyPendingJob, id)
}

func pendingJobFromContext(ctx context.Context) (domain.JobID, bool) {
	id, ok := ctx.Value(ctxKeyPendingJob).(domain.JobID)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
