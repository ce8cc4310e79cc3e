package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/veldtops/fieldhand/internal/core/domain"
	"github.com/veldtops/fieldhand/internal/core/ports"
)

// SaveJob upserts the record. Name and enqueue time are fixed at creation;
// the mutable columns follow the state machine.
func (r *Repository) SaveJob(ctx context.Context, job domain.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, name, status, data, enqueued_at, started_at, ended_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status      = excluded.status,
			data        = excluded.data,
			started_at  = excluded.started_at,
			ended_at    = excluded.ended_at,
			duration_ns = excluded.duration_ns`,
		string(job.ID),
		job.Name,
		string(job.Status),
		payloadText(job.Data),
		job.EnqueuedAt,
		job.StartedAt,
		job.EndedAt,
		durationNanos(job.EndedAt, job.Duration),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, id domain.JobID) (domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, status, CAST(data AS TEXT), enqueued_at, started_at, ended_at, duration_ns
		FROM jobs WHERE id = ?`, string(id))

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, domain.ErrJobNotFound
		}
		return domain.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs newest enqueue first, optionally filtered by status.
func (r *Repository) ListJobs(ctx context.Context, filter ports.JobFilter) ([]domain.Job, error) {
	query := `
		SELECT id, name, status, CAST(data AS TEXT), enqueued_at, started_at, ended_at, duration_ns
		FROM jobs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY enqueued_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var (
		job        domain.Job
		id, status string
		data       string
		durationNS sql.NullInt64
	)
	if err := row.Scan(&id, &job.Name, &status, &data, &job.EnqueuedAt, &job.StartedAt, &job.EndedAt, &durationNS); err != nil {
		return domain.Job{}, err
	}
	job.ID = domain.JobID(id)
	job.Status = domain.Status(status)
	job.Data = json.RawMessage(data)
	if durationNS.Valid {
		job.Duration = time.Duration(durationNS.Int64)
	}
	return job, nil
}

// payloadText guards the NOT NULL data column against empty payloads.
func payloadText(data json.RawMessage) string {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "{}"
	}
	return text
}

// durationNanos stores NULL until the record has an end time. Nanoseconds
// keep the round trip lossless for sub-millisecond steps.
func durationNanos(endedAt *time.Time, d time.Duration) *int64 {
	if endedAt == nil {
		return nil
	}
	ns := d.Nanoseconds()
	return &ns
}
