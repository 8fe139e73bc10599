package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/files"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// fileSelectColumns lists columns for SELECT queries on library_files.
const fileSelectColumns = `id, library_id, crawled_by_crawler_id, origin_uri, name, mime_type, size,
	origin_file_hash, origin_modification_date, processing_error_message, processing_error_at,
	archived_at, created_at, updated_at`

// LibraryFileRepository handles database operations for crawled library
// files, including the crawl saver contract.
type LibraryFileRepository struct {
	db      *sqlx.DB
	content *files.Storage
	logger  logger.Interface
}

// NewLibraryFileRepository creates a new library file repository. content may
// be nil when staged bodies are not needed (tests, metadata-only tools).
func NewLibraryFileRepository(db *sqlx.DB, content *files.Storage, log logger.Interface) *LibraryFileRepository {
	return &LibraryFileRepository{
		db:      db,
		content: content,
		logger:  log.WithComponent("database.files"),
	}
}

// GetFile loads a library file by ID.
func (r *LibraryFileRepository) GetFile(ctx context.Context, fileID string) (*domain.LibraryFile, error) {
	var file domain.LibraryFile
	err := r.db.GetContext(ctx, &file,
		`SELECT `+fileSelectColumns+` FROM library_files WHERE id = $1`, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

// findByOrigin loads the file record for a crawler's origin URI, archived or
// not. Returns nil without error when no record exists.
func (r *LibraryFileRepository) findByOrigin(ctx context.Context, crawlerID, originURI string) (*domain.LibraryFile, error) {
	var file domain.LibraryFile
	err := r.db.GetContext(ctx, &file,
		`SELECT `+fileSelectColumns+` FROM library_files
		 WHERE crawled_by_crawler_id = $1 AND origin_uri = $2`, crawlerID, originURI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up file by origin: %w", err)
	}
	return &file, nil
}

// SaveCrawledFile upserts a file by its (crawler, origin URI) key. Unchanged
// content hashes short-circuit with SkipProcessing; changed or new content is
// staged into the content store.
func (r *LibraryFileRepository) SaveCrawledFile(ctx context.Context, req *crawl.SaveFileRequest) (*crawl.SavedFile, error) {
	existing, err := r.findByOrigin(ctx, req.CrawlerID, req.OriginURI)
	if err != nil {
		return nil, err
	}

	if req.ProcessingError != nil {
		file, upsertErr := r.upsertProcessingError(ctx, existing, req)
		if upsertErr != nil {
			return nil, upsertErr
		}
		return &crawl.SavedFile{File: file, SkipProcessing: true, WasUpdated: existing != nil}, nil
	}

	unchanged := existing != nil && !existing.IsArchived() &&
		existing.ProcessingErrorMessage == nil &&
		existing.OriginFileHash != nil && req.ContentHash != nil &&
		*existing.OriginFileHash == *req.ContentHash

	if unchanged {
		if _, touchErr := r.db.ExecContext(ctx,
			`UPDATE library_files SET updated_at = NOW() WHERE id = $1`, existing.ID); touchErr != nil {
			return nil, fmt.Errorf("failed to touch unchanged file: %w", touchErr)
		}
		return &crawl.SavedFile{File: existing, SkipProcessing: true}, nil
	}

	file, err := r.upsert(ctx, existing, req)
	if err != nil {
		return nil, err
	}

	if r.content != nil && req.Content != nil {
		if writeErr := r.content.Write(file.LibraryID, file.ID, req.Content); writeErr != nil {
			return nil, writeErr
		}
	}

	return &crawl.SavedFile{File: file, WasUpdated: existing != nil}, nil
}

func (r *LibraryFileRepository) upsert(ctx context.Context, existing *domain.LibraryFile, req *crawl.SaveFileRequest) (*domain.LibraryFile, error) {
	if existing != nil {
		var file domain.LibraryFile
		err := r.db.GetContext(ctx, &file, `
			UPDATE library_files SET
				name = $1, mime_type = $2, size = $3,
				origin_file_hash = $4, origin_modification_date = $5,
				processing_error_message = NULL, processing_error_at = NULL,
				archived_at = NULL, updated_at = NOW()
			WHERE id = $6
			RETURNING `+fileSelectColumns,
			req.Name, req.MimeType, req.Size, req.ContentHash, req.ModifiedAt, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update crawled file: %w", err)
		}
		return &file, nil
	}

	var file domain.LibraryFile
	err := r.db.GetContext(ctx, &file, `
		INSERT INTO library_files
			(id, library_id, crawled_by_crawler_id, origin_uri, name, mime_type, size,
			 origin_file_hash, origin_modification_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+fileSelectColumns,
		uuid.NewString(), req.LibraryID, req.CrawlerID, req.OriginURI,
		req.Name, req.MimeType, req.Size, req.ContentHash, req.ModifiedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert crawled file: %w", err)
	}
	return &file, nil
}

func (r *LibraryFileRepository) upsertProcessingError(ctx context.Context, existing *domain.LibraryFile, req *crawl.SaveFileRequest) (*domain.LibraryFile, error) {
	if existing != nil {
		var file domain.LibraryFile
		err := r.db.GetContext(ctx, &file, `
			UPDATE library_files SET
				name = $1, mime_type = $2, size = $3,
				processing_error_message = $4, processing_error_at = NOW(),
				archived_at = NULL, updated_at = NOW()
			WHERE id = $5
			RETURNING `+fileSelectColumns,
			req.Name, req.MimeType, req.Size, req.ProcessingError, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to record file processing error: %w", err)
		}
		return &file, nil
	}

	var file domain.LibraryFile
	err := r.db.GetContext(ctx, &file, `
		INSERT INTO library_files
			(id, library_id, crawled_by_crawler_id, origin_uri, name, mime_type, size,
			 processing_error_message, processing_error_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING `+fileSelectColumns,
		uuid.NewString(), req.LibraryID, req.CrawlerID, req.OriginURI,
		req.Name, req.MimeType, req.Size, req.ProcessingError)
	if err != nil {
		return nil, fmt.Errorf("failed to record file processing error: %w", err)
	}
	return &file, nil
}

// RecordOmittedFile archives any live record at the omitted path and writes
// an omitted-file audit entry.
func (r *LibraryFileRepository) RecordOmittedFile(ctx context.Context, rec *crawl.OmittedFile) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE library_files SET archived_at = NOW(), updated_at = NOW()
		WHERE library_id = $1 AND origin_uri = $2 AND archived_at IS NULL`,
		rec.LibraryID, rec.FilePath)
	if err != nil {
		return fmt.Errorf("failed to archive omitted file: %w", err)
	}
	if archived, affectedErr := result.RowsAffected(); affectedErr == nil && archived > 0 {
		r.logger.Info("archived previously crawled file",
			"library_id", rec.LibraryID, "path", rec.FilePath)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO library_updates
			(id, library_id, crawler_run_id, update_type, message, file_path, file_name,
			 file_size, filter_type, filter_value)
		VALUES ($1, $2, $3, 'omitted', $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), rec.LibraryID, rec.RunID, rec.Reason,
		rec.FilePath, rec.FileName, rec.FileSize, rec.FilterType, rec.FilterValue)
	if err != nil {
		return fmt.Errorf("failed to record omitted file: %w", err)
	}
	return nil
}

// ArchiveFile soft-deletes a file and removes its staged content.
func (r *LibraryFileRepository) ArchiveFile(ctx context.Context, fileID string) error {
	var file domain.LibraryFile
	err := r.db.GetContext(ctx, &file, `
		UPDATE library_files SET archived_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING `+fileSelectColumns, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}
	if err != nil {
		return fmt.Errorf("failed to archive file: %w", err)
	}

	if r.content != nil {
		if removeErr := r.content.Remove(file.LibraryID, file.ID); removeErr != nil {
			r.logger.Warn("failed to remove archived file content",
				"file_id", file.ID, "error", removeErr)
		}
	}
	return nil
}
