package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/database"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// JobRepository provides data access for the ai_jobs table. Rows are
// created pending, advance to processing, and end completed or failed.
// Terminal rows are never mutated again and never deleted by clients.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	Fail(ctx context.Context, id uuid.UUID, failure models.JobFailure) error
}

type jobRepository struct {
	db *database.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *database.DB) JobRepository {
	return &jobRepository{db: db}
}

var _ JobRepository = (*jobRepository)(nil)

func (r *jobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
		INSERT INTO ai_jobs (id, kind, status, result, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		job.ID, job.Kind, job.Status, job.Result, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (r *jobRepository) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `
		SELECT id, kind, status, result, created_at, updated_at
		FROM ai_jobs
		WHERE id = $1`

	var job models.Job
	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Kind, &job.Status, &job.Result, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

func (r *jobRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, models.JobStatusProcessing, nil)
}

func (r *jobRepository) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	return r.setStatus(ctx, id, models.JobStatusCompleted, result)
}

func (r *jobRepository) Fail(ctx context.Context, id uuid.UUID, failure models.JobFailure) error {
	payload, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("failed to marshal job failure: %w", err)
	}
	return r.setStatus(ctx, id, models.JobStatusFailed, payload)
}

// setStatus advances a non-terminal job. The status guard keeps terminal
// rows immutable even if an executor double-reports.
func (r *jobRepository) setStatus(ctx context.Context, id uuid.UUID, status models.JobStatus, result json.RawMessage) error {
	query := `
		UPDATE ai_jobs
		SET status = $2, result = COALESCE($3, result), updated_at = $4
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`

	tag, err := r.db.Exec(ctx, query, id, status, result, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
