package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

// SaveStep upserts the record.
func (r *Repository) SaveStep(ctx context.Context, step domain.Step) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO steps (id, job_id, name, status, data, started_at, ended_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status      = excluded.status,
			data        = excluded.data,
			ended_at    = excluded.ended_at,
			duration_ns = excluded.duration_ns`,
		string(step.ID),
		string(step.JobID),
		step.Name,
		string(step.Status),
		payloadText(step.Data),
		step.StartedAt,
		step.EndedAt,
		durationNanos(step.EndedAt, step.Duration),
	)
	if err != nil {
		return fmt.Errorf("save step: %w", err)
	}
	return nil
}

// ListSteps returns the steps of one job in start order, which is the
// invocation order of the job's logic.
func (r *Repository) ListSteps(ctx context.Context, jobID domain.JobID) ([]domain.Step, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, name, status, CAST(data AS TEXT), started_at, ended_at, duration_ns
		FROM steps WHERE job_id = ? ORDER BY started_at`, string(jobID))
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	steps := []domain.Step{}
	for rows.Next() {
		var (
			step       domain.Step
			id, job    string
			status     string
			data       string
			durationNS sql.NullInt64
		)
		if err := rows.Scan(&id, &job, &step.Name, &status, &data, &step.StartedAt, &step.EndedAt, &durationNS); err != nil {
			return nil, fmt.Errorf("list steps: %w", err)
		}
		step.ID = domain.StepID(id)
		step.JobID = domain.JobID(job)
		step.Status = domain.Status(status)
		step.Data = json.RawMessage(data)
		if durationNS.Valid {
			step.Duration = time.Duration(durationNS.Int64)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	return steps, nil
}
