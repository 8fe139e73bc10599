package domain

import (
	"time"
)

// ContentProcessingTask tracks one extraction+embedding attempt for a single
// library file. There is no stored status column: status is always derived
// from the timestamp set (see the status package). Phases are strictly
// ordered processing -> extraction -> embedding.
type ContentProcessingTask struct {
	ID     string `db:"id"      json:"id"`
	FileID string `db:"file_id" json:"file_id"`

	// Processing phase (coarse envelope around extraction and embedding)
	ProcessingStartedAt   *time.Time `db:"processing_started_at"  json:"processing_started_at,omitempty"`
	ProcessingFinishedAt  *time.Time `db:"processing_finished_at" json:"processing_finished_at,omitempty"`
	ProcessingFailedAt    *time.Time `db:"processing_failed_at"   json:"processing_failed_at,omitempty"`
	ProcessingTimeout     bool       `db:"processing_timeout"     json:"processing_timeout"`
	ProcessingCancelled   bool       `db:"processing_cancelled"   json:"processing_cancelled"`
	ProcessingErrorDetail *string    `db:"processing_error_detail" json:"processing_error_detail,omitempty"`

	// Extraction phase
	ExtractionStartedAt  *time.Time `db:"extraction_started_at"  json:"extraction_started_at,omitempty"`
	ExtractionFinishedAt *time.Time `db:"extraction_finished_at" json:"extraction_finished_at,omitempty"`
	ExtractionFailedAt   *time.Time `db:"extraction_failed_at"   json:"extraction_failed_at,omitempty"`

	// Embedding phase
	EmbeddingStartedAt  *time.Time `db:"embedding_started_at"  json:"embedding_started_at,omitempty"`
	EmbeddingFinishedAt *time.Time `db:"embedding_finished_at" json:"embedding_finished_at,omitempty"`
	EmbeddingFailedAt   *time.Time `db:"embedding_failed_at"   json:"embedding_failed_at,omitempty"`

	// Results
	ChunksCount        *int    `db:"chunks_count"         json:"chunks_count,omitempty"`
	ChunksSize         *int64  `db:"chunks_size"          json:"chunks_size,omitempty"`
	EmbeddingModelName *string `db:"embedding_model_name" json:"embedding_model_name,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
