package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/golibrary/internal/domain"
)

const librarySelectColumns = `id, name, owner_id, embedding_model_name,
	embedding_model_provider, created_at, updated_at`

// LibraryRepository handles database operations for libraries.
type LibraryRepository struct {
	db *sqlx.DB
}

// NewLibraryRepository creates a new library repository.
func NewLibraryRepository(db *sqlx.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// GetLibrary loads a library by ID.
func (r *LibraryRepository) GetLibrary(ctx context.Context, libraryID string) (*domain.Library, error) {
	var library domain.Library
	err := r.db.GetContext(ctx, &library,
		`SELECT `+librarySelectColumns+` FROM libraries WHERE id = $1`, libraryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: library %s", ErrNotFound, libraryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get library: %w", err)
	}
	return &library, nil
}
