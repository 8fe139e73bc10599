package crawl

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jonesrussell/golibrary/internal/files"
	"github.com/jonesrussell/golibrary/internal/filter"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// Processable size limits for crawled files. Oversized files still get a
// record, marked with a processing error instead of content.
const (
	maxProcessableSize = 50 * 1024 * 1024
	warnSize           = 25 * 1024 * 1024
)

// smbFile is one queued discovery: a file found during the directory walk,
// waiting to be processed.
type smbFile struct {
	path       string
	name       string
	size       int64
	modifiedAt time.Time
	depth      int
}

// SMBCrawler walks an SMB share breadth-first and streams its text-like
// files into library storage.
type SMBCrawler struct {
	dialer ShareDialer
	filter *filter.Engine
	saver  FileSaver
	logger logger.Interface
}

// NewSMBCrawler creates an SMB crawler.
func NewSMBCrawler(dialer ShareDialer, eng *filter.Engine, saver FileSaver, log logger.Interface) *SMBCrawler {
	if dialer == nil {
		dialer = SMBDialer{}
	}
	return &SMBCrawler{
		dialer: dialer,
		filter: eng,
		saver:  saver,
		logger: log.WithComponent("crawl.smb"),
	}
}

// Crawl mounts the share, discovers files up to MaxDepth, and processes a
// FIFO queue of them up to MaxPages. The share is unmounted when the
// iterator finishes, exhausted or not.
func (c *SMBCrawler) Crawl(ctx context.Context, target *Target) (*Iterator, error) {
	var opts SMBOptions
	if err := decodeOptions(target.Options, &opts); err != nil {
		return nil, err
	}
	if opts.Address == "" || opts.Share == "" {
		return nil, fmt.Errorf("smb crawler requires address and share options")
	}

	share, release, err := c.dialer.Dial(ctx, &opts)
	if err != nil {
		return nil, err
	}

	c.logger.Info("started smb crawl",
		"uri", target.URI, "max_depth", target.MaxDepth, "max_pages", target.MaxPages)

	produce := func(ctx context.Context, yield func(*DiscoveredFile) bool) {
		c.run(ctx, target, share, yield)
	}
	return NewIterator(ctx, produce, release), nil
}

func (c *SMBCrawler) run(ctx context.Context, target *Target, share Share, yield func(*DiscoveredFile) bool) {
	root := strings.Trim(strings.TrimPrefix(target.URI, "smb:"), "/")

	queue := c.discover(share, root, target.MaxDepth)
	c.logger.Info("smb discovery complete", "files", len(queue))

	processed := 0
	for _, file := range queue {
		if processed >= target.MaxPages {
			break
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		processed++

		if !yield(c.processFile(ctx, target, share, file)) {
			return
		}
	}

	c.logger.Info("finished smb crawl", "processed", processed)
}

// discover walks directories breadth-first from root, collecting text-like
// files. Listing failures are logged and skipped; a visited set guards
// against re-entering a directory.
func (c *SMBCrawler) discover(share Share, root string, maxDepth int) []*smbFile {
	type dirEntry struct {
		path  string
		depth int
	}

	var files []*smbFile
	visited := map[string]struct{}{}
	dirs := []dirEntry{{path: root, depth: 0}}

	for len(dirs) > 0 {
		dir := dirs[0]
		dirs = dirs[1:]

		if _, seen := visited[dir.path]; seen {
			continue
		}
		visited[dir.path] = struct{}{}

		entries, err := share.ReadDir(dir.path)
		if err != nil {
			c.logger.Error("failed to list smb directory", "path", dir.path, "error", err)
			continue
		}

		for _, entry := range entries {
			entryPath := path.Join(dir.path, entry.Name())
			if entry.IsDir() {
				if dir.depth < maxDepth {
					dirs = append(dirs, dirEntry{path: entryPath, depth: dir.depth + 1})
				}
				continue
			}
			if !filter.IsTextLike(entry.Name()) {
				continue
			}
			files = append(files, &smbFile{
				path:       entryPath,
				name:       entry.Name(),
				size:       entry.Size(),
				modifiedAt: entry.ModTime(),
				depth:      dir.depth,
			})
		}
	}

	return files
}

func (c *SMBCrawler) processFile(ctx context.Context, target *Target, share Share, file *smbFile) *DiscoveredFile {
	originURI := "smb://" + file.path
	mimeType := filter.MimeTypeFromExtension(file.name)

	if rec, allowed := evaluateFilter(ctx, c.filter, c.saver, c.logger, target,
		file.name, originURI, file.size); !allowed {
		return rec
	}

	if file.size > maxProcessableSize {
		c.logger.Warn("smb file too large", "path", originURI, "size", file.size)
		processingError := fmt.Sprintf("File too large: %s exceeds the %s limit",
			filter.FormatSize(file.size), filter.FormatSize(maxProcessableSize))
		saved, err := c.saver.SaveCrawledFile(ctx, &SaveFileRequest{
			Name:            file.name,
			OriginURI:       originURI,
			LibraryID:       target.LibraryID,
			CrawlerID:       target.CrawlerID,
			MimeType:        mimeType,
			Size:            &file.size,
			ModifiedAt:      &file.modifiedAt,
			ProcessingError: &processingError,
		})
		if err != nil {
			return &DiscoveredFile{Err: fmt.Errorf("failed to save oversized file %s: %w", originURI, err)}
		}
		return &DiscoveredFile{
			File:  saved.File,
			Hints: fmt.Sprintf("smb file %s recorded without content: size limit", file.name),
		}
	}
	if file.size > warnSize {
		c.logger.Warn("smb file is large", "path", originURI, "size", file.size)
	}

	content, err := c.readAndConvert(share, file)
	if err != nil {
		return &DiscoveredFile{Err: fmt.Errorf("failed to process smb file %s: %w", originURI, err)}
	}

	size := int64(len(content))
	hash := contentHash(content)
	saved, err := c.saver.SaveCrawledFile(ctx, &SaveFileRequest{
		Name:        file.name,
		OriginURI:   originURI,
		LibraryID:   target.LibraryID,
		CrawlerID:   target.CrawlerID,
		MimeType:    mimeType,
		Size:        &size,
		ModifiedAt:  &file.modifiedAt,
		Content:     content,
		ContentHash: &hash,
	})
	if err != nil {
		return &DiscoveredFile{Err: fmt.Errorf("failed to save smb file %s: %w", originURI, err)}
	}

	if saved.SkipProcessing {
		return &DiscoveredFile{
			File:           saved.File,
			SkipProcessing: true,
			Hints:          fmt.Sprintf("smb file %s skipped: unchanged content", file.name),
		}
	}
	return &DiscoveredFile{
		File:       saved.File,
		WasUpdated: saved.WasUpdated,
		Hints:      fmt.Sprintf("smb file %s crawled", file.name),
	}
}

// readAndConvert reads the share file fully, stages it in a temp file, and
// converts it to normalized text. The temp file is removed regardless of
// conversion outcome.
func (c *SMBCrawler) readAndConvert(share Share, file *smbFile) ([]byte, error) {
	raw, err := share.ReadFile(file.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read share file: %w", err)
	}

	tmpPath, err := files.TempPath("smbcrawl-*" + path.Ext(file.name))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage file content: %w", err)
	}

	text, err := NormalizeText(file.name, raw)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}
