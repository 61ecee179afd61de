package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

// GenerationJobRepository provides persistence for generation runs.
type GenerationJobRepository struct {
	db *sqlx.DB
}

// NewGenerationJobRepository creates a new generation job repository.
func NewGenerationJobRepository(db *sqlx.DB) *GenerationJobRepository {
	return &GenerationJobRepository{db: db}
}

const jobColumns = `id, semester, strategy, status, score, hard_satisfied, unresolved, violations, stats, error, requested_by, started_at, finished_at, created_at, updated_at`

// Create stores a new job in PENDING state.
func (r *GenerationJobRepository) Create(ctx context.Context, job *models.GenerationJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.GenerationJobPending
	}

	const query = `INSERT INTO generation_jobs (id, semester, strategy, status, score, hard_satisfied, unresolved, violations, stats, error, requested_by, started_at, finished_at, created_at, updated_at) VALUES (:id, :semester, :strategy, :status, :score, :hard_satisfied, :unresolved, :violations, :stats, :error, :requested_by, :started_at, :finished_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create generation job: %w", err)
	}
	return nil
}

// FindByID loads a job by id.
func (r *GenerationJobRepository) FindByID(ctx context.Context, id string) (*models.GenerationJob, error) {
	query := fmt.Sprintf("SELECT %s FROM generation_jobs WHERE id = $1", jobColumns)
	var job models.GenerationJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// FindActiveBySemester returns a pending or running job for the semester, if any.
func (r *GenerationJobRepository) FindActiveBySemester(ctx context.Context, semester string) (*models.GenerationJob, error) {
	query := fmt.Sprintf("SELECT %s FROM generation_jobs WHERE semester = $1 AND status IN ('PENDING', 'RUNNING') ORDER BY created_at DESC LIMIT 1", jobColumns)
	var job models.GenerationJob
	if err := r.db.GetContext(ctx, &job, query, semester); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListBySemester returns the semester's jobs newest first.
func (r *GenerationJobRepository) ListBySemester(ctx context.Context, semester string, limit int) ([]models.GenerationJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT %s FROM generation_jobs WHERE semester = $1 ORDER BY created_at DESC LIMIT %d", jobColumns, limit)
	var jobs []models.GenerationJob
	if err := r.db.SelectContext(ctx, &jobs, query, semester); err != nil {
		return nil, fmt.Errorf("list generation jobs: %w", err)
	}
	return jobs, nil
}

// MarkRunning transitions a job into RUNNING.
func (r *GenerationJobRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	const query = `UPDATE generation_jobs SET status = $2, started_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.GenerationJobRunning, startedAt); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	return nil
}

// Complete records a finished run with its engine output.
func (r *GenerationJobRepository) Complete(ctx context.Context, job *models.GenerationJob) error {
	job.Status = models.GenerationJobCompleted
	now := time.Now().UTC()
	job.FinishedAt = &now
	job.UpdatedAt = now

	const query = `UPDATE generation_jobs SET status = :status, score = :score, hard_satisfied = :hard_satisfied, unresolved = :unresolved, violations = :violations, stats = :stats, finished_at = :finished_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("complete generation job: %w", err)
	}
	return nil
}

// Fail records a failed run with its error message.
func (r *GenerationJobRepository) Fail(ctx context.Context, id string, cause string) error {
	now := time.Now().UTC()
	const query = `UPDATE generation_jobs SET status = $2, error = $3, finished_at = $4, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.GenerationJobFailed, cause, now); err != nil {
		return fmt.Errorf("fail generation job: %w", err)
	}
	return nil
}
