// Package api exposes the agent's local HTTP surface: job dispatch and
// record inspection. Enqueueing callers get an id back, never the failure
// itself; outcomes are read from the records served here.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/veldtops/fieldhand/internal/core/domain"
	"github.com/veldtops/fieldhand/internal/core/ports"
	"github.com/veldtops/fieldhand/internal/core/services"
)

type recordReader interface {
	GetJob(ctx context.Context, id domain.JobID) (domain.Job, error)
	ListJobs(ctx context.Context, filter ports.JobFilter) ([]domain.Job, error)
	ListSteps(ctx context.Context, jobID domain.JobID) ([]domain.Step, error)
}

type logReader interface {
	Logs() ([]services.LogFile, error)
	ReadLog(name string) (string, error)
}

type Server struct {
	logger  *slog.Logger
	tracker *services.Tracker
	repo    recordReader
	logs    logReader
}

func NewServer(logger *slog.Logger, tracker *services.Tracker, repo recordReader, logs logReader) *Server {
	return &Server{logger: logger, tracker: tracker, repo: repo, logs: logs}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /logs", s.handleListLogs)
	mux.HandleFunc("GET /logs/{name}", s.handleGetLog)
	return mux
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

type createJobRequest struct {
	Name      string         `json:"name"`
	Operation string         `json:"operation"`
	Args      []any          `json:"args"`
	Kwargs    map[string]any `json:"kwargs"`
}

// handleCreateJob is the inbound dispatch path. Requests run outside worker
// context, so the tracker always records a Pending job, hands it to the
// queue, and answers with just the record id.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Operation == "" {
		s.writeError(w, http.StatusBadRequest, "operation is required")
		return
	}
	if req.Name == "" {
		req.Name = req.Operation
	}

	dispatch, err := s.tracker.Job(r.Context(), req.Name, req.Operation, domain.Invocation{
		Args:   req.Args,
		Kwargs: req.Kwargs,
	})
	if err != nil {
		if errors.Is(err, services.ErrUnknownOperation) {
			s.writeError(w, http.StatusBadRequest, "unknown operation")
			return
		}
		s.logger.Error("job dispatch failed", "operation", req.Operation, "error", err)
		s.writeError(w, http.StatusInternalServerError, "job dispatch failed")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{"job": dispatch.JobID})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := ports.JobFilter{
		Status: domain.Status(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	jobs, err := s.repo.ListJobs(r.Context(), filter)
	if err != nil {
		s.logger.Error("list jobs failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "list jobs failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := domain.JobID(r.PathValue("id"))

	job, err := s.repo.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("get job failed", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "get job failed")
		return
	}

	steps, err := s.repo.ListSteps(r.Context(), id)
	if err != nil {
		s.logger.Error("list steps failed", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "list steps failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"job": job, "steps": steps})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.logs.Logs()
	if err != nil {
		s.logger.Error("list logs failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "list logs failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	content, err := s.logs.ReadLog(name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidLogName):
			s.writeError(w, http.StatusBadRequest, "invalid log name")
		case errors.Is(err, os.ErrNotExist):
			s.writeError(w, http.StatusNotFound, "log not found")
		default:
			s.logger.Error("read log failed", "log", name, "error", err)
			s.writeError(w, http.StatusInternalServerError, "read log failed")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"name": name, "content": content})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
