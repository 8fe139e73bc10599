package crawl_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/filter"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// fakeFileInfo implements os.FileInfo for the fake share.
type fakeFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) Mode() os.FileMode  { return 0o644 }
func (f fakeFileInfo) ModTime() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
func (f fakeFileInfo) IsDir() bool        { return f.isDir }
func (f fakeFileInfo) Sys() any           { return nil }

// fakeShare is an in-memory share: dirs maps directory path to entries,
// files maps file path to content.
type fakeShare struct {
	dirs  map[string][]os.FileInfo
	files map[string][]byte

	released bool
}

func (s *fakeShare) ReadDir(path string) ([]os.FileInfo, error) {
	entries, ok := s.dirs[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return entries, nil
}

func (s *fakeShare) ReadFile(path string) ([]byte, error) {
	content, ok := s.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return content, nil
}

type fakeDialer struct {
	share *fakeShare
}

func (d *fakeDialer) Dial(_ context.Context, _ *crawl.SMBOptions) (crawl.Share, func(), error) {
	return d.share, func() { d.share.released = true }, nil
}

func smbTarget() *crawl.Target {
	return &crawl.Target{
		URI:       "smb://docs",
		MaxDepth:  3,
		MaxPages:  100,
		CrawlerID: "crawler-1",
		LibraryID: "lib-1",
		Options:   domain.JSONBMap{"address": "fileserver", "share": "docs"},
	}
}

func newSMBCrawler(share *fakeShare, saver *fakeSaver) *crawl.SMBCrawler {
	log := logger.NewNoOp()
	return crawl.NewSMBCrawler(&fakeDialer{share: share}, filter.NewEngine(log), saver, log)
}

func TestSMBCrawler(t *testing.T) {
	t.Parallel()

	t.Run("walks directories and saves text-like files", func(t *testing.T) {
		t.Parallel()

		share := &fakeShare{
			dirs: map[string][]os.FileInfo{
				"docs": {
					fakeFileInfo{name: "readme.txt", size: 10},
					fakeFileInfo{name: "archive", isDir: true},
					fakeFileInfo{name: "photo.png", size: 500},
				},
				"docs/archive": {
					fakeFileInfo{name: "old.md", size: 20},
				},
			},
			files: map[string][]byte{
				"docs/readme.txt":     []byte("hello\r\nworld"),
				"docs/archive/old.md": []byte("# old"),
			},
		}
		saver := &fakeSaver{}

		it, err := newSMBCrawler(share, saver).Crawl(context.Background(), smbTarget())
		require.NoError(t, err)
		results := collect(context.Background(), it)

		// photo.png is not text-like and never queued
		require.Len(t, results, 2)
		require.Len(t, saver.saved, 2)
		assert.Equal(t, "smb://docs/readme.txt", saver.saved[0].OriginURI)
		assert.Equal(t, "hello\nworld", string(saver.saved[0].Content))
		assert.Equal(t, "text/plain", saver.saved[0].MimeType)
		assert.Equal(t, "smb://docs/archive/old.md", saver.saved[1].OriginURI)

		assert.True(t, share.released, "share must be unmounted after the crawl")
	})

	t.Run("filtered files are recorded as omitted", func(t *testing.T) {
		t.Parallel()

		share := &fakeShare{
			dirs: map[string][]os.FileInfo{
				"docs": {
					fakeFileInfo{name: "keep.txt", size: 10},
					fakeFileInfo{name: "drop.txt", size: 10},
				},
			},
			files: map[string][]byte{
				"docs/keep.txt": []byte("keep"),
				"docs/drop.txt": []byte("drop"),
			},
		}
		saver := &fakeSaver{}

		target := smbTarget()
		target.Filter = &filter.Config{ExcludePatterns: []string{"drop"}}

		it, err := newSMBCrawler(share, saver).Crawl(context.Background(), target)
		require.NoError(t, err)
		results := collect(context.Background(), it)

		require.Len(t, results, 2)
		require.Len(t, saver.saved, 1)
		assert.Equal(t, "keep.txt", saver.saved[0].Name)
		require.Len(t, saver.omitted, 1)
		assert.Equal(t, "drop.txt", saver.omitted[0].FileName)
		assert.Equal(t, filter.TypeExcludePattern, saver.omitted[0].FilterType)
	})

	t.Run("oversized file gets a processing error record", func(t *testing.T) {
		t.Parallel()

		share := &fakeShare{
			dirs: map[string][]os.FileInfo{
				"docs": {
					fakeFileInfo{name: "huge.txt", size: 200 * 1024 * 1024},
				},
			},
			files: map[string][]byte{},
		}
		saver := &fakeSaver{}

		it, err := newSMBCrawler(share, saver).Crawl(context.Background(), smbTarget())
		require.NoError(t, err)
		results := collect(context.Background(), it)

		require.Len(t, results, 1)
		assert.NoError(t, results[0].Err)
		require.Len(t, saver.saved, 1)
		require.NotNil(t, saver.saved[0].ProcessingError)
		assert.Contains(t, *saver.saved[0].ProcessingError, "File too large")
		assert.Nil(t, saver.saved[0].Content)
	})

	t.Run("listing failure skips the directory", func(t *testing.T) {
		t.Parallel()

		share := &fakeShare{
			dirs: map[string][]os.FileInfo{
				"docs": {
					fakeFileInfo{name: "broken", isDir: true},
					fakeFileInfo{name: "ok.txt", size: 5},
				},
				// docs/broken missing: ReadDir fails for it
			},
			files: map[string][]byte{
				"docs/ok.txt": []byte("fine"),
			},
		}
		saver := &fakeSaver{}

		it, err := newSMBCrawler(share, saver).Crawl(context.Background(), smbTarget())
		require.NoError(t, err)
		results := collect(context.Background(), it)

		require.Len(t, results, 1)
		assert.Equal(t, "ok.txt", results[0].File.Name)
	})

	t.Run("max pages bounds processing", func(t *testing.T) {
		t.Parallel()

		share := &fakeShare{
			dirs: map[string][]os.FileInfo{
				"docs": {
					fakeFileInfo{name: "a.txt", size: 1},
					fakeFileInfo{name: "b.txt", size: 1},
					fakeFileInfo{name: "c.txt", size: 1},
				},
			},
			files: map[string][]byte{
				"docs/a.txt": []byte("a"),
				"docs/b.txt": []byte("b"),
				"docs/c.txt": []byte("c"),
			},
		}
		saver := &fakeSaver{}
		target := smbTarget()
		target.MaxPages = 2

		it, err := newSMBCrawler(share, saver).Crawl(context.Background(), target)
		require.NoError(t, err)
		results := collect(context.Background(), it)

		assert.Len(t, results, 2)
	})

	t.Run("early consumer stop still unmounts", func(t *testing.T) {
		t.Parallel()

		share := &fakeShare{
			dirs: map[string][]os.FileInfo{
				"docs": {
					fakeFileInfo{name: "a.txt", size: 1},
					fakeFileInfo{name: "b.txt", size: 1},
				},
			},
			files: map[string][]byte{
				"docs/a.txt": []byte("a"),
				"docs/b.txt": []byte("b"),
			},
		}
		saver := &fakeSaver{}

		it, err := newSMBCrawler(share, saver).Crawl(context.Background(), smbTarget())
		require.NoError(t, err)

		_, ok := it.Next(context.Background())
		require.True(t, ok)
		it.Close()

		assert.True(t, share.released, "share must be unmounted on early stop")
	})
}
