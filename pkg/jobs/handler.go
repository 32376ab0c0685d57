package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/analysis"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/repositories"
)

// executeTimeout bounds a single background job run.
const executeTimeout = 10 * time.Minute

// Handler serves the internal job endpoint. It authenticates callers with a
// shared secret, tries the registered executor's fast path, and otherwise
// records a pending job and runs the executor in the background.
type Handler struct {
	secret   string
	registry *Registry
	jobRepo  repositories.JobRepository
	logger   *zap.Logger
}

// NewHandler creates a job handler backed by the given registry.
func NewHandler(secret string, registry *Registry, jobRepo repositories.JobRepository, logger *zap.Logger) *Handler {
	return &Handler{
		secret:   secret,
		registry: registry,
		jobRepo:  jobRepo,
		logger:   logger.Named("jobs_handler"),
	}
}

// Handle processes POST /internal/ai-jobs.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(SecretHeader) != h.secret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}

	exec, err := h.registry.Lookup(req.Kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if fast, ok := exec.(FastExecutor); ok {
		result, hit, err := fast.TryFast(r.Context(), req.Payload)
		if err != nil {
			h.logger.Warn("fast path failed, falling back to async",
				zap.String("kind", req.Kind), zap.Error(err))
		} else if hit {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(result)
			return
		}
	}

	job := &models.Job{Kind: req.Kind, Status: models.JobStatusPending}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		h.logger.Error("failed to create job row", zap.String("kind", req.Kind), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create job"})
		return
	}

	go h.run(job, exec, req.Payload)

	writeJSON(w, http.StatusAccepted, enqueueResponse{JobID: job.ID})
}

// run executes a job in the background, detached from the request context.
func (h *Handler) run(job *models.Job, exec Executor, payload json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), executeTimeout)
	defer cancel()

	logger := h.logger.With(zap.String("job_id", job.ID.String()), zap.String("kind", job.Kind))

	if err := h.jobRepo.MarkProcessing(ctx, job.ID); err != nil {
		logger.Error("failed to mark job processing", zap.Error(err))
		return
	}

	result, err := exec.Execute(ctx, payload)
	if err != nil {
		logger.Error("job execution failed", zap.Error(err))
		failure := models.JobFailure{Error: err.Error()}
		var tagged *analysis.Error
		if errors.As(err, &tagged) {
			failure.Error = tagged.Message
			failure.Kind = string(tagged.Kind)
			failure.Details = tagged.Details
		}
		if failErr := h.jobRepo.Fail(ctx, job.ID, failure); failErr != nil {
			logger.Error("failed to record job failure", zap.Error(failErr))
		}
		return
	}

	if err := h.jobRepo.Complete(ctx, job.ID, result); err != nil {
		logger.Error("failed to record job result", zap.Error(err))
		return
	}
	logger.Info("job completed")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
