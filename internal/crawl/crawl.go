// Package crawl provides the source crawlers that discover files in remote
// systems and stream them into library storage.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/filter"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// Target describes one crawl invocation. It is produced by the orchestration
// layer from a stored crawler configuration.
type Target struct {
	URI       string
	MaxDepth  int
	MaxPages  int
	CrawlerID string
	LibraryID string

	// RunID links audit records to the crawler run, when one exists.
	RunID *string

	// Filter is the parsed file filter configuration, nil when the
	// crawler has none.
	Filter *filter.Config

	// Options carries crawler-kind-specific settings (auth, pagination,
	// credentials references). Decoded per kind.
	Options domain.JSONBMap
}

// DiscoveredFile is one yielded crawl result: either a saved library file or
// an error-shaped record. A single failed file never aborts the crawl.
type DiscoveredFile struct {
	File *domain.LibraryFile

	// SkipProcessing marks files whose content is unchanged since the
	// last crawl; no processing task should be created for them.
	SkipProcessing bool

	// WasUpdated marks files whose content changed since the last crawl.
	WasUpdated bool

	// Hints is a free-form status line for run logs.
	Hints string

	// Err is set on error-shaped records; File is nil in that case.
	Err error
}

// SaveFileRequest is the persistence request a crawler hands to its saver
// for each discovered file.
type SaveFileRequest struct {
	Name      string
	OriginURI string
	LibraryID string
	CrawlerID string
	MimeType  string

	Size       *int64
	ModifiedAt *time.Time

	// Content is the file body to stage into upload storage. Nil when
	// only the record should be written (processing errors).
	Content []byte

	// ContentHash is the sha256 of the origin content. The saver skips
	// unchanged files by comparing it to the stored hash.
	ContentHash *string

	// ProcessingError records files that were discovered but cannot be
	// processed (oversized). The record is upserted, content is not.
	ProcessingError *string
}

// SavedFile is the saver's answer: the upserted record plus change-detection
// flags.
type SavedFile struct {
	File           *domain.LibraryFile
	SkipProcessing bool
	WasUpdated     bool
}

// OmittedFile is the audit record written when the file filter rejects a
// discovered file.
type OmittedFile struct {
	LibraryID   string
	RunID       *string
	FilePath    string
	FileName    string
	FileSize    *int64
	Reason      string
	FilterType  string
	FilterValue *string
}

// FileSaver persists crawl results. The database layer implements it.
type FileSaver interface {
	// SaveCrawledFile upserts a library file by (crawlerID, originUri),
	// stages its content, and reports unchanged-content skips.
	SaveCrawledFile(ctx context.Context, req *SaveFileRequest) (*SavedFile, error)

	// RecordOmittedFile archives any existing record for the path and
	// writes an omitted-file audit entry.
	RecordOmittedFile(ctx context.Context, rec *OmittedFile) error
}

// Crawler is the common crawl contract: a lazy sequence of discovered files,
// bounded by the target's MaxPages, with deterministic cleanup on every exit
// path of the returned iterator.
type Crawler interface {
	Crawl(ctx context.Context, target *Target) (*Iterator, error)
}

// ErrUnknownKind is returned for crawler kinds the factory does not know.
var ErrUnknownKind = fmt.Errorf("unknown crawler kind")

// evaluateFilter applies the target's filter to a candidate file. allowed is
// true when the file passes or no filter is configured. On rejection the
// omission is recorded and the returned record carries the omission hint, or
// the recording error.
func evaluateFilter(
	ctx context.Context,
	eng *filter.Engine,
	saver FileSaver,
	log logger.Interface,
	target *Target,
	name, originURI string,
	size int64,
) (rec *DiscoveredFile, allowed bool) {
	if target.Filter == nil {
		return nil, true
	}
	result := eng.Evaluate(filter.FileInfo{Name: name, Path: originURI, Size: size}, target.Filter)
	if result.Allowed {
		return nil, true
	}

	log.Info("file filtered out", "path", originURI, "reason", result.Reason)
	filterValue := result.FilterValue
	if err := saver.RecordOmittedFile(ctx, &OmittedFile{
		LibraryID:   target.LibraryID,
		RunID:       target.RunID,
		FilePath:    originURI,
		FileName:    name,
		FileSize:    &size,
		Reason:      result.Reason,
		FilterType:  result.FilterType,
		FilterValue: &filterValue,
	}); err != nil {
		return &DiscoveredFile{Err: fmt.Errorf("failed to record omitted file %s: %w", originURI, err)}, false
	}
	return &DiscoveredFile{Hints: fmt.Sprintf("file %s omitted: %s", name, result.Reason)}, false
}
