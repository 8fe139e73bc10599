package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/enrich"
)

const enrichmentTaskSelectColumns = `id, list_id, field_id, file_id, status, priority,
	requested_at, started_at, completed_at, error_message, metadata`

// EnrichmentTaskRepository handles database operations for enrichment tasks
// and the list item cache they materialize into.
type EnrichmentTaskRepository struct {
	db *sqlx.DB
}

// NewEnrichmentTaskRepository creates a new enrichment task repository.
func NewEnrichmentTaskRepository(db *sqlx.DB) *EnrichmentTaskRepository {
	return &EnrichmentTaskRepository{db: db}
}

// ReplaceTasks atomically deletes every task for the (list, field) pair and
// inserts the given tasks. Returns the number of deleted tasks.
func (r *EnrichmentTaskRepository) ReplaceTasks(ctx context.Context, listID, fieldID string, tasks []*domain.EnrichmentTask) (int64, error) {
	var deleted int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, execErr := tx.ExecContext(ctx,
			`DELETE FROM enrichment_tasks WHERE list_id = $1 AND field_id = $2`,
			listID, fieldID)
		if execErr != nil {
			return fmt.Errorf("failed to delete existing tasks: %w", execErr)
		}
		deleted, execErr = result.RowsAffected()
		if execErr != nil {
			return execErr
		}

		if len(tasks) == 0 {
			return nil
		}
		_, execErr = tx.NamedExecContext(ctx, `
			INSERT INTO enrichment_tasks
				(id, list_id, field_id, file_id, status, priority, requested_at, metadata)
			VALUES (:id, :list_id, :field_id, :file_id, :status, :priority, :requested_at, :metadata)`,
			tasks)
		if execErr != nil {
			return fmt.Errorf("failed to insert tasks: %w", execErr)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeletePendingTasks removes the scope's tasks still in pending status.
func (r *EnrichmentTaskRepository) DeletePendingTasks(ctx context.Context, scope enrich.TaskScope) (int64, error) {
	query := `DELETE FROM enrichment_tasks WHERE list_id = $1 AND status = $2`
	args := []any{scope.ListID, domain.EnrichmentStatusPending}
	if scope.FieldID != "" {
		args = append(args, scope.FieldID)
		query += fmt.Sprintf(" AND field_id = $%d", len(args))
	}
	if scope.FileID != "" {
		args = append(args, scope.FileID)
		query += fmt.Sprintf(" AND file_id = $%d", len(args))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending tasks: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// ClearListEnrichments deletes the scope's non-terminal tasks and its cached
// values, atomically, so the field can be re-run from a clean slate.
func (r *EnrichmentTaskRepository) ClearListEnrichments(ctx context.Context, scope enrich.TaskScope) (deletedTasks, clearedCaches int64, err error) {
	taskQuery := `DELETE FROM enrichment_tasks WHERE list_id = $1 AND status IN ($2, $3, $4)`
	taskArgs := []any{scope.ListID,
		domain.EnrichmentStatusPending, domain.EnrichmentStatusFailed, domain.EnrichmentStatusCanceled}

	cacheQuery := `
		DELETE FROM list_item_caches
		USING list_fields
		WHERE list_item_caches.field_id = list_fields.id
		  AND list_fields.list_id = $1`
	cacheArgs := []any{scope.ListID}

	if scope.FieldID != "" {
		taskArgs = append(taskArgs, scope.FieldID)
		taskQuery += fmt.Sprintf(" AND field_id = $%d", len(taskArgs))
		cacheArgs = append(cacheArgs, scope.FieldID)
		cacheQuery += fmt.Sprintf(" AND list_item_caches.field_id = $%d", len(cacheArgs))
	}
	if scope.FileID != "" {
		taskArgs = append(taskArgs, scope.FileID)
		taskQuery += fmt.Sprintf(" AND file_id = $%d", len(taskArgs))
		cacheArgs = append(cacheArgs, scope.FileID)
		cacheQuery += fmt.Sprintf(" AND list_item_caches.file_id = $%d", len(cacheArgs))
	}

	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, execErr := tx.ExecContext(ctx, taskQuery, taskArgs...)
		if execErr != nil {
			return fmt.Errorf("failed to delete tasks: %w", execErr)
		}
		deletedTasks, execErr = result.RowsAffected()
		if execErr != nil {
			return execErr
		}

		result, execErr = tx.ExecContext(ctx, cacheQuery, cacheArgs...)
		if execErr != nil {
			return fmt.Errorf("failed to clear cached values: %w", execErr)
		}
		clearedCaches, execErr = result.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, 0, err
	}
	return deletedTasks, clearedCaches, nil
}

// ListTasks returns the list's enrichment tasks, newest request first.
func (r *EnrichmentTaskRepository) ListTasks(ctx context.Context, listID string, limit int) ([]*domain.EnrichmentTask, error) {
	var tasks []*domain.EnrichmentTask
	err := r.db.SelectContext(ctx, &tasks, `
		SELECT `+enrichmentTaskSelectColumns+` FROM enrichment_tasks
		WHERE list_id = $1
		ORDER BY requested_at DESC LIMIT $2`, listID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrichment tasks: %w", err)
	}
	return tasks, nil
}

// StatusCounts returns per-status task counts for a list.
func (r *EnrichmentTaskRepository) StatusCounts(ctx context.Context, listID string) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) FROM enrichment_tasks
		WHERE list_id = $1 GROUP BY status`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrichment tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var s string
		var n int
		if scanErr := rows.Scan(&s, &n); scanErr != nil {
			return nil, fmt.Errorf("failed to scan task counts: %w", scanErr)
		}
		counts[s] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task counts: %w", err)
	}
	return counts, nil
}
