package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/golibrary/internal/domain"
)

// crawlerSelectColumns lists columns for SELECT queries on library_crawlers.
const crawlerSelectColumns = `id, library_id, name, kind, uri, max_depth, max_pages,
	include_patterns, exclude_patterns, allowed_mime_types, max_file_size, min_file_size,
	options, schedule, created_at, updated_at`

// CrawlerRepository handles database operations for crawler configurations.
type CrawlerRepository struct {
	db *sqlx.DB
}

// NewCrawlerRepository creates a new crawler repository.
func NewCrawlerRepository(db *sqlx.DB) *CrawlerRepository {
	return &CrawlerRepository{db: db}
}

// GetCrawler loads a crawler configuration by ID.
func (r *CrawlerRepository) GetCrawler(ctx context.Context, crawlerID string) (*domain.LibraryCrawler, error) {
	var crawler domain.LibraryCrawler
	err := r.db.GetContext(ctx, &crawler,
		`SELECT `+crawlerSelectColumns+` FROM library_crawlers WHERE id = $1`, crawlerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: crawler %s", ErrNotFound, crawlerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawler: %w", err)
	}
	return &crawler, nil
}

// ListCrawlers returns every crawler of a library.
func (r *CrawlerRepository) ListCrawlers(ctx context.Context, libraryID string) ([]*domain.LibraryCrawler, error) {
	var crawlers []*domain.LibraryCrawler
	err := r.db.SelectContext(ctx, &crawlers,
		`SELECT `+crawlerSelectColumns+` FROM library_crawlers WHERE library_id = $1 ORDER BY name`,
		libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawlers: %w", err)
	}
	return crawlers, nil
}

// ListScheduledCrawlers returns crawlers that carry a cron schedule.
func (r *CrawlerRepository) ListScheduledCrawlers(ctx context.Context) ([]*domain.LibraryCrawler, error) {
	var crawlers []*domain.LibraryCrawler
	err := r.db.SelectContext(ctx, &crawlers,
		`SELECT `+crawlerSelectColumns+` FROM library_crawlers WHERE schedule IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled crawlers: %w", err)
	}
	return crawlers, nil
}
