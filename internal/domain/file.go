// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// LibraryFile represents a file ingested into a library. Files are upserted
// by their (crawled_by_crawler_id, origin_uri) key on every crawl pass and
// soft-deleted by setting ArchivedAt rather than removed.
type LibraryFile struct {
	// Identity
	ID                 string `db:"id"                    json:"id"`
	LibraryID          string `db:"library_id"            json:"library_id"`
	CrawledByCrawlerID string `db:"crawled_by_crawler_id" json:"crawled_by_crawler_id"`
	OriginURI          string `db:"origin_uri"            json:"origin_uri"`

	// File metadata
	Name     string `db:"name"      json:"name"`
	MimeType string `db:"mime_type" json:"mime_type"`
	Size     *int64 `db:"size"      json:"size,omitempty"`

	// Change detection
	OriginFileHash         *string    `db:"origin_file_hash"         json:"origin_file_hash,omitempty"`
	OriginModificationDate *time.Time `db:"origin_modification_date" json:"origin_modification_date,omitempty"`

	// Processing errors recorded during crawling (e.g. oversized files)
	ProcessingErrorMessage *string    `db:"processing_error_message" json:"processing_error_message,omitempty"`
	ProcessingErrorAt      *time.Time `db:"processing_error_at"      json:"processing_error_at,omitempty"`

	// Lifecycle
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"  json:"updated_at"`
}

// IsArchived reports whether the file has been soft-deleted.
func (f *LibraryFile) IsArchived() bool {
	return f.ArchivedAt != nil
}

// LibraryUpdate is an audit record written while crawling, most importantly
// for files omitted by the file filter.
type LibraryUpdate struct {
	ID           string    `db:"id"             json:"id"`
	LibraryID    string    `db:"library_id"     json:"library_id"`
	CrawlerRunID *string   `db:"crawler_run_id" json:"crawler_run_id,omitempty"`
	FileID       *string   `db:"file_id"        json:"file_id,omitempty"`
	UpdateType   string    `db:"update_type"    json:"update_type"` // omitted, created, updated, archived
	Message      string    `db:"message"        json:"message"`
	FilePath     string    `db:"file_path"      json:"file_path"`
	FileName     string    `db:"file_name"      json:"file_name"`
	FileSize     *int64    `db:"file_size"      json:"file_size,omitempty"`
	FilterType   *string   `db:"filter_type"    json:"filter_type,omitempty"`
	FilterValue  *string   `db:"filter_value"   json:"filter_value,omitempty"`
	CreatedAt    time.Time `db:"created_at"     json:"created_at"`
}
