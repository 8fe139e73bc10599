package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/golibrary/internal/domain"
)

const runSelectColumns = `id, crawler_id, started_at, ended_at, success, error_message,
	run_by_user_id, run_by_cron, files_crawled, files_omitted, files_errored`

// CrawlerRunRepository handles database operations for crawler runs.
type CrawlerRunRepository struct {
	db *sqlx.DB
}

// NewCrawlerRunRepository creates a new crawler run repository.
func NewCrawlerRunRepository(db *sqlx.DB) *CrawlerRunRepository {
	return &CrawlerRunRepository{db: db}
}

// CreateRun inserts a new run row.
func (r *CrawlerRunRepository) CreateRun(ctx context.Context, run *domain.CrawlerRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO crawler_runs (id, crawler_id, started_at, run_by_cron, run_by_user_id)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.CrawlerID, run.StartedAt, run.RunByCron, run.RunByUserID)
	if err != nil {
		return fmt.Errorf("failed to create crawler run: %w", err)
	}
	return nil
}

// FinishRun records a run's outcome and counters.
func (r *CrawlerRunRepository) FinishRun(ctx context.Context, run *domain.CrawlerRun) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE crawler_runs SET
			ended_at = $1, success = $2, error_message = $3,
			files_crawled = $4, files_omitted = $5, files_errored = $6
		WHERE id = $7`,
		run.EndedAt, run.Success, run.ErrorMessage,
		run.FilesCrawled, run.FilesOmitted, run.FilesErrored, run.ID)
	return execRequireRows(result, err, fmt.Errorf("%w: crawler run %s", ErrNotFound, run.ID))
}

// ActiveRun returns the crawler's unfinished run, or nil when none is active.
func (r *CrawlerRunRepository) ActiveRun(ctx context.Context, crawlerID string) (*domain.CrawlerRun, error) {
	var run domain.CrawlerRun
	err := r.db.GetContext(ctx, &run, `
		SELECT `+runSelectColumns+` FROM crawler_runs
		WHERE crawler_id = $1 AND ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1`, crawlerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up active run: %w", err)
	}
	return &run, nil
}

// ListRuns returns a crawler's run history, newest first.
func (r *CrawlerRunRepository) ListRuns(ctx context.Context, crawlerID string, limit int) ([]*domain.CrawlerRun, error) {
	var runs []*domain.CrawlerRun
	err := r.db.SelectContext(ctx, &runs, `
		SELECT `+runSelectColumns+` FROM crawler_runs
		WHERE crawler_id = $1
		ORDER BY started_at DESC LIMIT $2`, crawlerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawler runs: %w", err)
	}
	return runs, nil
}
