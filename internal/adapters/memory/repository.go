// Package memory provides in-memory adapters for tests and local
// development. Semantics mirror the DuckDB repository: upsert saves,
// newest-enqueue-first job listing, start-ordered steps.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/veldtops/fieldhand/internal/core/domain"
	"github.com/veldtops/fieldhand/internal/core/ports"
)

type Repository struct {
	mu    sync.RWMutex
	jobs  map[domain.JobID]domain.Job
	steps map[domain.StepID]domain.Step
}

var _ ports.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		jobs:  make(map[domain.JobID]domain.Job),
		steps: make(map[domain.StepID]domain.Step),
	}
}

func (r *Repository) SaveJob(_ context.Context, job domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *Repository) GetJob(_ context.Context, id domain.JobID) (domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

func (r *Repository) ListJobs(_ context.Context, filter ports.JobFilter) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := []domain.Job{}
	for _, job := range r.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].EnqueuedAt.After(jobs[j].EnqueuedAt)
	})
	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

func (r *Repository) SaveStep(_ context.Context, step domain.Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[step.ID] = step
	return nil
}

func (r *Repository) ListSteps(_ context.Context, jobID domain.JobID) ([]domain.Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := []domain.Step{}
	for _, step := range r.steps {
		if step.JobID == jobID {
			steps = append(steps, step)
		}
	}
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].StartedAt.Before(steps[j].StartedAt)
	})
	return steps, nil
}
