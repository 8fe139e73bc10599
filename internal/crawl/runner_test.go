package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/logger"
)

type fakeRunStore struct {
	crawler *domain.LibraryCrawler

	createdRun      *domain.CrawlerRun
	finishedRun     *domain.CrawlerRun
	processingTasks []string
	taskErr         error
}

func (s *fakeRunStore) GetCrawler(_ context.Context, crawlerID string) (*domain.LibraryCrawler, error) {
	if s.crawler == nil || s.crawler.ID != crawlerID {
		return nil, errors.New("crawler not found")
	}
	return s.crawler, nil
}

func (s *fakeRunStore) CreateRun(_ context.Context, run *domain.CrawlerRun) error {
	s.createdRun = run
	return nil
}

func (s *fakeRunStore) FinishRun(_ context.Context, run *domain.CrawlerRun) error {
	s.finishedRun = run
	return nil
}

func (s *fakeRunStore) CreateProcessingTask(_ context.Context, fileID string) error {
	if s.taskErr != nil {
		return s.taskErr
	}
	s.processingTasks = append(s.processingTasks, fileID)
	return nil
}

// scriptedCrawler yields a fixed sequence of results.
type scriptedCrawler struct {
	results []*crawl.DiscoveredFile
	err     error

	gotTarget *crawl.Target
}

func (c *scriptedCrawler) Crawl(ctx context.Context, target *crawl.Target) (*crawl.Iterator, error) {
	c.gotTarget = target
	if c.err != nil {
		return nil, c.err
	}
	produce := func(_ context.Context, yield func(*crawl.DiscoveredFile) bool) {
		for _, file := range c.results {
			if !yield(file) {
				return
			}
		}
	}
	return crawl.NewIterator(ctx, produce, nil), nil
}

type fakeLocker struct {
	acquired  int
	released  int
	denyErr   error
	lastTTL   time.Duration
	lastOwner string
}

func (l *fakeLocker) AcquireRunLock(_ context.Context, crawlerID string, ttl time.Duration) (func(), error) {
	if l.denyErr != nil {
		return nil, l.denyErr
	}
	l.acquired++
	l.lastTTL = ttl
	l.lastOwner = crawlerID
	return func() { l.released++ }, nil
}

func testCrawler() *domain.LibraryCrawler {
	return &domain.LibraryCrawler{
		ID:        "crawler-1",
		LibraryID: "lib-1",
		Name:      "docs",
		Kind:      domain.CrawlerKindHTTP,
		URI:       "https://docs.example.com",
		MaxDepth:  2,
		MaxPages:  100,
	}
}

func discovered(id string) *crawl.DiscoveredFile {
	return &crawl.DiscoveredFile{File: &domain.LibraryFile{ID: id}}
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	t.Run("counts results and enqueues processing", func(t *testing.T) {
		t.Parallel()

		store := &fakeRunStore{crawler: testCrawler()}
		crawler := &scriptedCrawler{results: []*crawl.DiscoveredFile{
			discovered("file-1"),
			{File: &domain.LibraryFile{ID: "file-2"}, SkipProcessing: true},
			{},
			{Err: errors.New("fetch failed")},
			discovered("file-3"),
		}}
		runner := crawl.NewRunner(store, nil,
			map[string]crawl.Crawler{domain.CrawlerKindHTTP: crawler}, logger.NewNoOp())

		result, err := runner.Run(context.Background(), "crawler-1", false, strPtr("user-1"))
		require.NoError(t, err)

		assert.Equal(t, 3, result.FilesCrawled)
		assert.Equal(t, 1, result.FilesOmitted)
		assert.Equal(t, 1, result.FilesErrored)
		assert.Equal(t, []string{"file-1", "file-3"}, store.processingTasks)

		require.NotNil(t, store.finishedRun)
		require.NotNil(t, store.finishedRun.Success)
		assert.True(t, *store.finishedRun.Success)
		require.NotNil(t, store.finishedRun.EndedAt)
		assert.False(t, store.finishedRun.RunByCron)
		require.NotNil(t, store.finishedRun.RunByUserID)
		assert.Equal(t, "user-1", *store.finishedRun.RunByUserID)
	})

	t.Run("builds target from crawler config", func(t *testing.T) {
		t.Parallel()

		cfg := testCrawler()
		cfg.ExcludePatterns = strPtr(`["*.tmp"]`)
		store := &fakeRunStore{crawler: cfg}
		crawler := &scriptedCrawler{}
		runner := crawl.NewRunner(store, nil,
			map[string]crawl.Crawler{domain.CrawlerKindHTTP: crawler}, logger.NewNoOp())

		_, err := runner.Run(context.Background(), "crawler-1", true, nil)
		require.NoError(t, err)

		target := crawler.gotTarget
		require.NotNil(t, target)
		assert.Equal(t, cfg.URI, target.URI)
		assert.Equal(t, cfg.MaxDepth, target.MaxDepth)
		assert.Equal(t, cfg.MaxPages, target.MaxPages)
		assert.Equal(t, cfg.LibraryID, target.LibraryID)
		require.NotNil(t, target.RunID)
		assert.Equal(t, store.createdRun.ID, *target.RunID)
		require.NotNil(t, target.Filter)
		assert.True(t, store.createdRun.RunByCron)
	})

	t.Run("acquires and releases the run lock", func(t *testing.T) {
		t.Parallel()

		store := &fakeRunStore{crawler: testCrawler()}
		locker := &fakeLocker{}
		runner := crawl.NewRunner(store, locker,
			map[string]crawl.Crawler{domain.CrawlerKindHTTP: &scriptedCrawler{}}, logger.NewNoOp())

		_, err := runner.Run(context.Background(), "crawler-1", false, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, locker.acquired)
		assert.Equal(t, 1, locker.released)
		assert.Equal(t, "crawler-1", locker.lastOwner)
		assert.Equal(t, 30*time.Minute, locker.lastTTL)
	})

	t.Run("held lock aborts before creating a run", func(t *testing.T) {
		t.Parallel()

		store := &fakeRunStore{crawler: testCrawler()}
		locker := &fakeLocker{denyErr: errors.New("crawler crawler-1 already has an active run")}
		runner := crawl.NewRunner(store, locker,
			map[string]crawl.Crawler{domain.CrawlerKindHTTP: &scriptedCrawler{}}, logger.NewNoOp())

		_, err := runner.Run(context.Background(), "crawler-1", false, nil)
		require.Error(t, err)
		assert.Nil(t, store.createdRun)
	})

	t.Run("crawler start failure marks the run failed", func(t *testing.T) {
		t.Parallel()

		store := &fakeRunStore{crawler: testCrawler()}
		crawler := &scriptedCrawler{err: errors.New("bad options")}
		runner := crawl.NewRunner(store, nil,
			map[string]crawl.Crawler{domain.CrawlerKindHTTP: crawler}, logger.NewNoOp())

		_, err := runner.Run(context.Background(), "crawler-1", false, nil)
		require.Error(t, err)

		require.NotNil(t, store.finishedRun)
		require.NotNil(t, store.finishedRun.Success)
		assert.False(t, *store.finishedRun.Success)
		require.NotNil(t, store.finishedRun.ErrorMessage)
		assert.Contains(t, *store.finishedRun.ErrorMessage, "bad options")
	})

	t.Run("processing task failure counts as errored", func(t *testing.T) {
		t.Parallel()

		store := &fakeRunStore{crawler: testCrawler(), taskErr: errors.New("queue down")}
		crawler := &scriptedCrawler{results: []*crawl.DiscoveredFile{discovered("file-1")}}
		runner := crawl.NewRunner(store, nil,
			map[string]crawl.Crawler{domain.CrawlerKindHTTP: crawler}, logger.NewNoOp())

		result, err := runner.Run(context.Background(), "crawler-1", false, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, result.FilesCrawled)
		assert.Equal(t, 1, result.FilesErrored)
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		t.Parallel()

		cfg := testCrawler()
		cfg.Kind = "ftp"
		store := &fakeRunStore{crawler: cfg}
		runner := crawl.NewRunner(store, nil, map[string]crawl.Crawler{}, logger.NewNoOp())

		_, err := runner.Run(context.Background(), "crawler-1", false, nil)
		assert.ErrorIs(t, err, crawl.ErrUnknownKind)
	})
}
