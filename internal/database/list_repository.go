package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/enrich"
)

const fieldSelectColumns = `id, list_id, name, source_type, type, file_property,
	prompt, language_model_id, language_model_name, language_provider, failure_terms,
	created_at, updated_at`

const fieldContextSelectColumns = `id, field_id, context_type, position,
	query_template, max_chunks, max_distance, max_content_tokens, context_field_id`

// ListRepository handles database operations for lists, their fields, and
// cached field values.
type ListRepository struct {
	db *sqlx.DB
}

// NewListRepository creates a new list repository.
func NewListRepository(db *sqlx.DB) *ListRepository {
	return &ListRepository{db: db}
}

// GetList loads a list with its attached library IDs.
func (r *ListRepository) GetList(ctx context.Context, listID string) (*domain.List, error) {
	var list domain.List
	err := r.db.GetContext(ctx, &list,
		`SELECT id, name, owner_id, created_at, updated_at FROM lists WHERE id = $1`, listID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: list %s", ErrNotFound, listID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	err = r.db.SelectContext(ctx, &list.LibraryIDs,
		`SELECT library_id FROM list_libraries WHERE list_id = $1 ORDER BY library_id`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list libraries: %w", err)
	}
	return &list, nil
}

// FieldWithContext loads a list field with its ordered context entries and
// the fields they reference.
func (r *ListRepository) FieldWithContext(ctx context.Context, fieldID string) (*domain.ListField, error) {
	var field domain.ListField
	err := r.db.GetContext(ctx, &field,
		`SELECT `+fieldSelectColumns+` FROM list_fields WHERE id = $1`, fieldID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: field %s", ErrNotFound, fieldID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}

	err = r.db.SelectContext(ctx, &field.Context,
		`SELECT `+fieldContextSelectColumns+` FROM list_field_contexts
		 WHERE field_id = $1 ORDER BY position ASC`, fieldID)
	if err != nil {
		return nil, fmt.Errorf("failed to load field contexts: %w", err)
	}

	if err := r.resolveContextFields(ctx, field.Context); err != nil {
		return nil, err
	}
	return &field, nil
}

// resolveContextFields loads the fields referenced by fieldReference entries
// and attaches them in place.
func (r *ListRepository) resolveContextFields(ctx context.Context, contexts []domain.FieldContext) error {
	ids := make([]string, 0, len(contexts))
	for i := range contexts {
		if contexts[i].ContextFieldID != nil {
			ids = append(ids, *contexts[i].ContextFieldID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		`SELECT `+fieldSelectColumns+` FROM list_fields WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build context field query: %w", err)
	}

	var referenced []*domain.ListField
	if err := r.db.SelectContext(ctx, &referenced, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load context fields: %w", err)
	}

	byID := make(map[string]*domain.ListField, len(referenced))
	for _, f := range referenced {
		byID[f.ID] = f
	}
	for i := range contexts {
		if contexts[i].ContextFieldID != nil {
			contexts[i].ContextField = byID[*contexts[i].ContextFieldID]
		}
	}
	return nil
}

// candidateRow joins a library file with the library and crawler attributes
// the enrichment metadata builder needs.
type candidateRow struct {
	domain.LibraryFile

	LibraryName            string  `db:"library_name"`
	EmbeddingModelName     *string `db:"embedding_model_name"`
	EmbeddingModelProvider *string `db:"embedding_model_provider"`
	CrawlerURI             *string `db:"crawler_uri"`
}

// Candidates returns the non-archived files across the list's libraries.
func (r *ListRepository) Candidates(ctx context.Context, listID string) ([]*enrich.Candidate, error) {
	var rows []candidateRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT f.id, f.library_id, f.crawled_by_crawler_id, f.origin_uri, f.name,
			f.mime_type, f.size, f.origin_file_hash, f.origin_modification_date,
			f.processing_error_message, f.processing_error_at,
			f.archived_at, f.created_at, f.updated_at,
			l.name AS library_name,
			l.embedding_model_name, l.embedding_model_provider,
			c.uri AS crawler_uri
		FROM library_files f
		JOIN list_libraries ll ON ll.library_id = f.library_id
		JOIN libraries l ON l.id = f.library_id
		LEFT JOIN library_crawlers c ON c.id = f.crawled_by_crawler_id
		WHERE ll.list_id = $1 AND f.archived_at IS NULL
		ORDER BY f.created_at ASC`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrichment candidates: %w", err)
	}

	candidates := make([]*enrich.Candidate, len(rows))
	for i := range rows {
		row := &rows[i]
		candidates[i] = &enrich.Candidate{
			File:                   &row.LibraryFile,
			LibraryName:            row.LibraryName,
			CrawlerURI:             row.CrawlerURI,
			EmbeddingModel:         row.EmbeddingModelName,
			EmbeddingModelProvider: row.EmbeddingModelProvider,
		}
	}
	return candidates, nil
}

// CachedValues returns the cache rows for the given field/file ID sets.
func (r *ListRepository) CachedValues(ctx context.Context, fieldIDs, fileIDs []string) ([]*domain.ListItemCache, error) {
	if len(fieldIDs) == 0 || len(fileIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, file_id, field_id, value_string, value_number, value_boolean,
			value_date, value_datetime, enrichment_error_message, created_at, updated_at
		FROM list_item_caches
		WHERE field_id IN (?) AND file_id IN (?)`, fieldIDs, fileIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build cached values query: %w", err)
	}

	var rows []*domain.ListItemCache
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load cached values: %w", err)
	}
	return rows, nil
}
