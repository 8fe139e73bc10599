package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/status"
)

const processingTaskSelectColumns = `id, file_id,
	processing_started_at, processing_finished_at, processing_failed_at,
	processing_timeout, processing_cancelled, processing_error_detail,
	extraction_started_at, extraction_finished_at, extraction_failed_at,
	embedding_started_at, embedding_finished_at, embedding_failed_at,
	chunks_count, chunks_size, embedding_model_name, created_at, updated_at`

// ProcessingTaskRepository handles database operations for content
// processing tasks. Task status is derived from timestamps, never stored;
// status queries go through the status package's where-clause inverse.
type ProcessingTaskRepository struct {
	db *sqlx.DB
}

// NewProcessingTaskRepository creates a new processing task repository.
func NewProcessingTaskRepository(db *sqlx.DB) *ProcessingTaskRepository {
	return &ProcessingTaskRepository{db: db}
}

// CreateProcessingTask enqueues content processing for a file.
func (r *ProcessingTaskRepository) CreateProcessingTask(ctx context.Context, fileID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO content_processing_tasks (id, file_id) VALUES ($1, $2)`,
		uuid.NewString(), fileID)
	if err != nil {
		return fmt.Errorf("failed to create processing task: %w", err)
	}
	return nil
}

// ListByStatus returns the oldest tasks whose derived status matches,
// up to limit.
func (r *ProcessingTaskRepository) ListByStatus(ctx context.Context, s status.ProcessingStatus, limit int) ([]*domain.ContentProcessingTask, error) {
	where, err := status.WhereClause(s)
	if err != nil {
		return nil, err
	}

	var tasks []*domain.ContentProcessingTask
	query := `SELECT ` + processingTaskSelectColumns + ` FROM content_processing_tasks
		WHERE ` + where + ` ORDER BY created_at ASC LIMIT $1`
	if err := r.db.SelectContext(ctx, &tasks, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list processing tasks: %w", err)
	}
	return tasks, nil
}

// CountByStatus returns how many tasks currently derive to the given status.
func (r *ProcessingTaskRepository) CountByStatus(ctx context.Context, s status.ProcessingStatus) (int, error) {
	where, err := status.WhereClause(s)
	if err != nil {
		return 0, err
	}

	var count int
	query := `SELECT COUNT(*) FROM content_processing_tasks WHERE ` + where
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count processing tasks: %w", err)
	}
	return count, nil
}
