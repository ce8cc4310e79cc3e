package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobID string

type StepID string

// Status is the lifecycle state of a job or step record.
type Status string

const (
	StatusPending Status = "Pending"
	StatusRunning Status = "Running"
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

var (
	ErrJobNotFound = errors.New("job not found")

	// ErrTerminalState is returned when a transition is attempted on a
	// record that already reached Success or Failure.
	ErrTerminalState = errors.New("record already in a terminal state")
)

// Job is the durable record of a top-level unit of work. It is created
// Pending when the work is handed to the queue, or directly Running when
// executed inline inside a worker.
type Job struct {
	ID         JobID           `json:"id"`
	Name       string          `json:"name"`
	Status     Status          `json:"status"`
	Data       json.RawMessage `json:"data,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	EndedAt    *time.Time      `json:"ended_at,omitempty"`
	Duration   time.Duration   `json:"duration,omitempty"`
}

// NewPendingJob creates a record awaiting asynchronous pickup. data carries
// the operation identity and arguments captured at enqueue time.
func NewPendingJob(name string, data json.RawMessage) Job {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return Job{
		ID:         JobID(uuid.NewString()),
		Name:       name,
		Status:     StatusPending,
		Data:       data,
		EnqueuedAt: time.Now().UTC(),
	}
}

// NewRunningJob creates a record for a job executed inline, with no Pending
// phase.
func NewRunningJob(name string) Job {
	now := time.Now().UTC()
	return Job{
		ID:         JobID(uuid.NewString()),
		Name:       name,
		Status:     StatusRunning,
		Data:       json.RawMessage("{}"),
		EnqueuedAt: now,
		StartedAt:  &now,
	}
}

// Start transitions Pending → Running.
func (j *Job) Start() error {
	if j.Status.Terminal() {
		return ErrTerminalState
	}
	if j.Status != StatusPending {
		return fmt.Errorf("cannot start job in status %q", j.Status)
	}
	now := time.Now().UTC()
	j.Status = StatusRunning
	j.StartedAt = &now
	return nil
}

// Succeed marks the job Success and attaches the result payload.
func (j *Job) Succeed(p Payload) error {
	return j.finish(StatusSuccess, p)
}

// Fail marks the job Failure and attaches the failure payload.
func (j *Job) Fail(p Payload) error {
	return j.finish(StatusFailure, p)
}

func (j *Job) finish(status Status, p Payload) error {
	if j.Status.Terminal() {
		return ErrTerminalState
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("serialize payload: %w", err)
	}
	now := time.Now().UTC()
	j.Status = status
	j.Data = data
	j.EndedAt = &now
	if j.StartedAt != nil {
		j.Duration = now.Sub(*j.StartedAt)
	}
	return nil
}

// Step is the durable record of an inline sub-operation. Steps always run
// immediately, so there is no Pending state.
type Step struct {
	ID        StepID          `json:"id"`
	JobID     JobID           `json:"job_id"`
	Name      string          `json:"name"`
	Status    Status          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Duration  time.Duration   `json:"duration,omitempty"`
}

// NewStep creates a record already in Running under the owning job.
func NewStep(name string, jobID JobID) Step {
	return Step{
		ID:        StepID(uuid.NewString()),
		JobID:     jobID,
		Name:      name,
		Status:    StatusRunning,
		Data:      json.RawMessage("{}"),
		StartedAt: time.Now().UTC(),
	}
}

// Succeed marks the step Success and attaches the result payload.
func (s *Step) Succeed(p Payload) error {
	return s.finish(StatusSuccess, p)
}

// Fail marks the step Failure and attaches the failure payload.
func (s *Step) Fail(p Payload) error {
	return s.finish(StatusFailure, p)
}

func (s *Step) finish(status Status, p Payload) error {
	if s.Status.Terminal() {
		return ErrTerminalState
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("serialize payload: %w", err)
	}
	now := time.Now().UTC()
	s.Status = status
	s.Data = data
	s.EndedAt = &now
	s.Duration = now.Sub(s.StartedAt)
	return nil
}
