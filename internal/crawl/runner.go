package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/golibrary/internal/coordination"
	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/filter"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// runLockTTL bounds how long a crashed run can block its crawler.
const runLockTTL = 30 * time.Minute

// RunStore is the persistence surface of the crawl runner.
type RunStore interface {
	// GetCrawler loads a crawler configuration.
	GetCrawler(ctx context.Context, crawlerID string) (*domain.LibraryCrawler, error)

	// CreateRun inserts a new crawler run row.
	CreateRun(ctx context.Context, run *domain.CrawlerRun) error

	// FinishRun marks a run ended with its outcome and counters.
	FinishRun(ctx context.Context, run *domain.CrawlerRun) error

	// CreateProcessingTask enqueues content processing for a crawled file.
	CreateProcessingTask(ctx context.Context, fileID string) error
}

// RunLocker serializes runs per crawler. The coordination package provides
// the Redis-backed implementation; a nil locker disables locking.
type RunLocker interface {
	AcquireRunLock(ctx context.Context, crawlerID string, ttl time.Duration) (release func(), err error)
}

// RedisRunLocker implements RunLocker on the shared distributed lock.
type RedisRunLocker struct {
	Locks *coordination.LockManager
}

// AcquireRunLock takes the per-crawler lock without blocking; a held lock
// means another run is active.
func (l *RedisRunLocker) AcquireRunLock(ctx context.Context, crawlerID string, ttl time.Duration) (func(), error) {
	lock := l.Locks.CrawlerRunLock(crawlerID, ttl)
	acquired, err := lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("crawler %s already has an active run", crawlerID)
	}
	return func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			// Lock expires by TTL; nothing else to do.
			_ = err
		}
	}, nil
}

// RunResult summarizes a finished crawl run.
type RunResult struct {
	RunID        string
	FilesCrawled int
	FilesOmitted int
	FilesErrored int
}

// Runner executes crawl runs end to end: lock, run row, crawler selection,
// result consumption, processing task creation, run finalization.
type Runner struct {
	store    RunStore
	locker   RunLocker
	crawlers map[string]Crawler
	logger   logger.Interface
	now      func() time.Time
}

// NewRunner creates a crawl runner over registered crawlers keyed by kind.
func NewRunner(store RunStore, locker RunLocker, crawlers map[string]Crawler, log logger.Interface) *Runner {
	return &Runner{
		store:    store,
		locker:   locker,
		crawlers: crawlers,
		logger:   log.WithComponent("crawl.runner"),
		now:      time.Now,
	}
}

// DefaultCrawlers wires the standard crawler set against a saver.
// httpServiceURL is the fallback endpoint for web crawlers whose options
// carry no serviceUrl.
func DefaultCrawlers(saver FileSaver, eng *filter.Engine, httpServiceURL string, log logger.Interface) map[string]Crawler {
	web := NewHTTPCrawler(nil, saver, log)
	web.DefaultServiceURL = httpServiceURL
	return map[string]Crawler{
		domain.CrawlerKindHTTP:       web,
		domain.CrawlerKindSMB:        NewSMBCrawler(nil, eng, saver, log),
		domain.CrawlerKindSharePoint: NewSharePointCrawler(nil, saver, log),
		domain.CrawlerKindAPI:        NewAPICrawler(nil, saver, log),
	}
}

// Run executes one crawl for the given crawler configuration. byCron marks
// scheduler-initiated runs; userID attributes manual ones.
func (r *Runner) Run(ctx context.Context, crawlerID string, byCron bool, userID *string) (*RunResult, error) {
	crawlerCfg, err := r.store.GetCrawler(ctx, crawlerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load crawler %s: %w", crawlerID, err)
	}

	crawler, ok := r.crawlers[crawlerCfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, crawlerCfg.Kind)
	}

	if r.locker != nil {
		release, lockErr := r.locker.AcquireRunLock(ctx, crawlerID, runLockTTL)
		if lockErr != nil {
			return nil, lockErr
		}
		defer release()
	}

	run := &domain.CrawlerRun{
		ID:          uuid.NewString(),
		CrawlerID:   crawlerID,
		StartedAt:   r.now(),
		RunByCron:   byCron,
		RunByUserID: userID,
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create crawler run: %w", err)
	}

	crawlErr := r.executeCrawl(ctx, crawlerCfg, run, crawler)

	endedAt := r.now()
	run.EndedAt = &endedAt
	success := crawlErr == nil
	run.Success = &success
	if crawlErr != nil {
		msg := crawlErr.Error()
		run.ErrorMessage = &msg
	}
	if err := r.store.FinishRun(ctx, run); err != nil {
		r.logger.Error("failed to finalize crawler run", "run_id", run.ID, "error", err)
	}

	if crawlErr != nil {
		return nil, crawlErr
	}

	r.logger.Info("crawl run finished",
		"run_id", run.ID,
		"crawled", run.FilesCrawled,
		"omitted", run.FilesOmitted,
		"errored", run.FilesErrored)

	return &RunResult{
		RunID:        run.ID,
		FilesCrawled: run.FilesCrawled,
		FilesOmitted: run.FilesOmitted,
		FilesErrored: run.FilesErrored,
	}, nil
}

func (r *Runner) executeCrawl(
	ctx context.Context,
	crawlerCfg *domain.LibraryCrawler,
	run *domain.CrawlerRun,
	crawler Crawler,
) error {
	target := &Target{
		URI:       crawlerCfg.URI,
		MaxDepth:  crawlerCfg.MaxDepth,
		MaxPages:  crawlerCfg.MaxPages,
		CrawlerID: crawlerCfg.ID,
		LibraryID: crawlerCfg.LibraryID,
		RunID:     &run.ID,
		Options:   crawlerCfg.Options,
		Filter: filter.ParseConfig(filter.RawConfig{
			IncludePatterns:  crawlerCfg.IncludePatterns,
			ExcludePatterns:  crawlerCfg.ExcludePatterns,
			AllowedMimeTypes: crawlerCfg.AllowedMimeTypes,
			MaxFileSize:      crawlerCfg.MaxFileSize,
			MinFileSize:      crawlerCfg.MinFileSize,
		}, r.logger),
	}

	iter, err := crawler.Crawl(ctx, target)
	if err != nil {
		return err
	}
	defer iter.Close()

	for {
		file, ok := iter.Next(ctx)
		if !ok {
			break
		}

		switch {
		case file.Err != nil:
			run.FilesErrored++
			r.logger.Error("crawl item failed", "run_id", run.ID, "error", file.Err)
		case file.File == nil:
			// Filter omission: the crawler already wrote the audit record.
			run.FilesOmitted++
		default:
			run.FilesCrawled++
			if file.SkipProcessing {
				continue
			}
			if err := r.store.CreateProcessingTask(ctx, file.File.ID); err != nil {
				run.FilesErrored++
				r.logger.Error("failed to create processing task",
					"run_id", run.ID, "file_id", file.File.ID, "error", err)
			}
		}
	}

	return ctx.Err()
}
