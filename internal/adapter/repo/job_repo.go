package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, user_id, kind, status, brief_json, country_code, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.Kind,
		job.Status,
		job.BriefJSON,
		job.CountryCode,
		job.ErrorMessage,
	)
	return err
}

// ClaimNext claims the oldest pending job. The CTE locks a single row with
// SKIP LOCKED so concurrent workers never pick the same job, and flips it to
// processing in the same statement.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context) (*domain.Job, error) {
	query := `
WITH next_job AS (
    SELECT id
    FROM jobs
    WHERE status = 'pending'
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
),
claimed AS (
    UPDATE jobs
    SET status = 'processing', started_at = NOW()
    WHERE id IN (SELECT id FROM next_job)
    RETURNING id, user_id, kind, status, brief_json, country_code, created_at, started_at
)
SELECT id, user_id, kind, status, brief_json, country_code, created_at, started_at FROM claimed;
`
	row := r.pool.QueryRow(ctx, query)
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Kind,
		&job.Status,
		&job.BriefJSON,
		&job.CountryCode,
		&job.CreatedAt,
		&job.StartedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoPendingJobs
		}
		return nil, err
	}
	// Ensure brief bytes are not aliased to pgx buffers.
	job.BriefJSON = append([]byte(nil), job.BriefJSON...)
	return &job, nil
}

// ClaimByID claims one specific job for inline processing. The status guard
// keeps a polling worker and the claiming caller from both owning the row.
func (r *JobRepositoryPG) ClaimByID(ctx context.Context, jobID string) error {
	query := `
UPDATE jobs
SET status = 'processing', started_at = NOW()
WHERE id = $1 AND status = 'pending';
`
	tag, err := r.pool.Exec(ctx, query, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete marks a job completed and stores its result payload.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID string, resultJSON []byte) error {
	query := `
UPDATE jobs
SET status = 'completed',
    result_json = $2,
    error_message = '',
    completed_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, nullableBytes(resultJSON))
	return err
}

// Fail marks a job failed, recording the error text and the payload that was
// in flight when the failure happened.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID string, errMsg string, checkpointJSON []byte) error {
	query := `
UPDATE jobs
SET status = 'failed',
    error_message = $2,
    checkpoint_json = COALESCE($3, checkpoint_json),
    completed_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, errMsg, nullableBytes(checkpointJSON))
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, user_id, kind, status, brief_json, result_json, checkpoint_json, country_code, error_message, created_at, started_at, completed_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Kind,
		&job.Status,
		&job.BriefJSON,
		&job.ResultJSON,
		&job.CheckpointJSON,
		&job.CountryCode,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
