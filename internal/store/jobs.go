// internal/store/jobs.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-enrichment/internal/models"

	"github.com/lib/pq"
)

const jobColumns = `id, product_ids, status, progress, result, created_at, updated_at`

// JobStore persists enrichment jobs. Every transition is guarded in SQL:
// terminal rows never change and progress never decreases.
type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

func scanJob(row rowScanner) (*models.EnrichmentJob, error) {
	var (
		job    models.EnrichmentJob
		ids    []int64
		status string
		result []byte
	)
	if err := row.Scan(&job.ID, pq.Array(&ids), &status, &job.Progress, &result, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	job.ProductIDs = ids
	job.Status = models.JobStatus(status)
	if len(result) > 0 && string(result) != "null" {
		job.Result = &models.JobResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("decode result of job %d: %w", job.ID, err)
		}
	}
	return &job, nil
}

// Create inserts a PENDING job at progress 0.
func (s *JobStore) Create(ctx context.Context, productIDs []int64) (*models.EnrichmentJob, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO enrichment_jobs (product_ids, status, progress)
		VALUES ($1, 'PENDING', 0)
		RETURNING `+jobColumns, pq.Array(productIDs))
	return scanJob(row)
}

func (s *JobStore) Get(ctx context.Context, id int64) (*models.EnrichmentJob, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM enrichment_jobs WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

func (s *JobStore) transition(ctx context.Context, query string, args ...interface{}) (*models.EnrichmentJob, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	return job, err
}

// MarkProcessing moves a PENDING job to PROCESSING. It succeeds at most once per job.
func (s *JobStore) MarkProcessing(ctx context.Context, id int64, progress float64) (*models.EnrichmentJob, error) {
	return s.transition(ctx, `
		UPDATE enrichment_jobs
		SET status = 'PROCESSING', progress = GREATEST(progress, $2), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+jobColumns, id, progress)
}

// UpdateProgress raises the progress of a PROCESSING job.
func (s *JobStore) UpdateProgress(ctx context.Context, id int64, progress float64) (*models.EnrichmentJob, error) {
	return s.transition(ctx, `
		UPDATE enrichment_jobs
		SET progress = GREATEST(progress, $2), updated_at = NOW()
		WHERE id = $1 AND status = 'PROCESSING'
		RETURNING `+jobColumns, id, progress)
}

// Complete finishes a PROCESSING job at progress 100.
func (s *JobStore) Complete(ctx context.Context, id int64, result *models.JobResult) (*models.EnrichmentJob, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, `
		UPDATE enrichment_jobs
		SET status = 'COMPLETED', progress = 100, result = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PROCESSING'
		RETURNING `+jobColumns, id, data)
}

// Fail marks a non-terminal job FAILED, keeping its progress.
func (s *JobStore) Fail(ctx context.Context, id int64, message string) (*models.EnrichmentJob, error) {
	data, err := json.Marshal(models.FailedResult(message))
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, `
		UPDATE enrichment_jobs
		SET status = 'FAILED', result = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED')
		RETURNING `+jobColumns, id, data)
}

// FailUnfinished fails every PENDING or PROCESSING job and returns their ids.
func (s *JobStore) FailUnfinished(ctx context.Context, message string) ([]int64, error) {
	data, err := json.Marshal(models.FailedResult(message))
	if err != nil {
		return nil, err
	}
	return s.ids(ctx, `
		UPDATE enrichment_jobs
		SET status = 'FAILED', result = $1, updated_at = NOW()
		WHERE status IN ('PENDING', 'PROCESSING')
		RETURNING id`, data)
}

// DeleteFinishedBefore removes terminal jobs last updated before cutoff.
func (s *JobStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	return s.ids(ctx, `
		DELETE FROM enrichment_jobs
		WHERE status IN ('COMPLETED', 'FAILED') AND updated_at < $1
		RETURNING id`, cutoff)
}

func (s *JobStore) ids(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
