// Package duckdb persists job and step records in a single-file embedded
// database. Single-writer-per-record discipline is assumed; there is no
// record-level locking.
package duckdb

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/veldtops/fieldhand/internal/core/ports"
)

type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ports.Repository = (*Repository)(nil)

func NewRepository(path string, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	r := &Repository{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id          VARCHAR PRIMARY KEY,
			name        VARCHAR NOT NULL,
			status      VARCHAR NOT NULL,
			data        TEXT NOT NULL DEFAULT '{}',
			enqueued_at TIMESTAMP NOT NULL,
			started_at  TIMESTAMP,
			ended_at    TIMESTAMP,
			duration_ns BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS steps (
			id          VARCHAR PRIMARY KEY,
			job_id      VARCHAR NOT NULL,
			name        VARCHAR NOT NULL,
			status      VARCHAR NOT NULL,
			data        TEXT NOT NULL DEFAULT '{}',
			started_at  TIMESTAMP NOT NULL,
			ended_at    TIMESTAMP,
			duration_ns BIGINT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
