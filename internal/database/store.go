package database

import (
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/enrich"
	"github.com/jonesrussell/golibrary/internal/files"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// Store bundles the repositories into the persistence surfaces the crawl
// runner and enrichment queue manager consume.
type Store struct {
	*LibraryRepository
	*LibraryFileRepository
	*CrawlerRepository
	*CrawlerRunRepository
	*ProcessingTaskRepository
	*ListRepository
	*EnrichmentTaskRepository
}

// Compile-time interface checks.
var (
	_ crawl.FileSaver = (*Store)(nil)
	_ crawl.RunStore  = (*Store)(nil)
	_ enrich.Store    = (*Store)(nil)
)

// NewStore creates the full repository set over one connection pool.
func NewStore(db *sqlx.DB, content *files.Storage, log logger.Interface) *Store {
	return &Store{
		LibraryRepository:        NewLibraryRepository(db),
		LibraryFileRepository:    NewLibraryFileRepository(db, content, log),
		CrawlerRepository:        NewCrawlerRepository(db),
		CrawlerRunRepository:     NewCrawlerRunRepository(db),
		ProcessingTaskRepository: NewProcessingTaskRepository(db),
		ListRepository:           NewListRepository(db),
		EnrichmentTaskRepository: NewEnrichmentTaskRepository(db),
	}
}
