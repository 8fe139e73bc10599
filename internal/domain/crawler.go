package domain

import (
	"time"
)

// Crawler kinds supported by the ingestion pipeline.
const (
	CrawlerKindHTTP       = "http"
	CrawlerKindSMB        = "smb"
	CrawlerKindSharePoint = "sharepoint"
	CrawlerKindAPI        = "api"
)

// LibraryCrawler is a configured source that discovers files into a library.
type LibraryCrawler struct {
	// Identity
	ID        string `db:"id"         json:"id"`
	LibraryID string `db:"library_id" json:"library_id"`
	Name      string `db:"name"       json:"name"`
	Kind      string `db:"kind"       json:"kind"`
	URI       string `db:"uri"        json:"uri"`

	// Crawl bounds
	MaxDepth int `db:"max_depth" json:"max_depth"`
	MaxPages int `db:"max_pages" json:"max_pages"`

	// Filter configuration, persisted as independent JSON-encoded fields.
	// Parse failures leave the corresponding filter unset, never abort.
	IncludePatterns  *string  `db:"include_patterns"   json:"include_patterns,omitempty"`
	ExcludePatterns  *string  `db:"exclude_patterns"   json:"exclude_patterns,omitempty"`
	AllowedMimeTypes *string  `db:"allowed_mime_types" json:"allowed_mime_types,omitempty"`
	MaxFileSize      *float64 `db:"max_file_size"      json:"max_file_size,omitempty"` // MB
	MinFileSize      *float64 `db:"min_file_size"      json:"min_file_size,omitempty"` // MB

	// Kind-specific options (API provider config, SharePoint window span, ...)
	Options JSONBMap `db:"options" json:"options,omitempty"`

	// Scheduling
	Schedule *string `db:"schedule" json:"schedule,omitempty"` // cron expression

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CrawlerRun tracks a single invocation of a crawler. At most one run per
// crawler may be active (EndedAt null) at a time.
type CrawlerRun struct {
	ID           string     `db:"id"            json:"id"`
	CrawlerID    string     `db:"crawler_id"    json:"crawler_id"`
	StartedAt    time.Time  `db:"started_at"    json:"started_at"`
	EndedAt      *time.Time `db:"ended_at"      json:"ended_at,omitempty"`
	Success      *bool      `db:"success"       json:"success,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	RunByUserID  *string    `db:"run_by_user_id" json:"run_by_user_id,omitempty"`
	RunByCron    bool       `db:"run_by_cron"   json:"run_by_cron"`
	FilesCrawled int        `db:"files_crawled" json:"files_crawled"`
	FilesOmitted int        `db:"files_omitted" json:"files_omitted"`
	FilesErrored int        `db:"files_errored" json:"files_errored"`
}
