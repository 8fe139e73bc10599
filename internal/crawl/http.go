package crawl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonesrussell/golibrary/internal/filter"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// Marker lines of the crawl service's line-delimited result protocol.
const (
	markerBeginResult   = "---BEGIN CRAWLER RESULT---"
	markerBeginMarkdown = "---BEGIN MARKDOWN---"
	markerEndResult     = "---END CRAWLER RESULT---"
)

const defaultHTTPTimeout = 10 * time.Minute

// resultMetadata is the JSON metadata block between the begin-result and
// begin-markdown markers.
type resultMetadata struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// HTTPCrawler streams pages from an external crawling service that walks a
// website and emits one metadata+markdown block per page.
type HTTPCrawler struct {
	client *http.Client
	saver  FileSaver
	filter *filter.Engine
	logger logger.Interface

	// DefaultServiceURL is used when a crawler's options carry no
	// serviceUrl of their own.
	DefaultServiceURL string
}

// NewHTTPCrawler creates an HTTP crawler.
func NewHTTPCrawler(client *http.Client, saver FileSaver, log logger.Interface) *HTTPCrawler {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPCrawler{
		client: client,
		saver:  saver,
		filter: filter.NewEngine(log),
		logger: log.WithComponent("crawl.http"),
	}
}

// Crawl opens a streaming response from the crawl service and yields one
// result per completed block. Stream and decode errors become error-shaped
// records; the response body is always closed when the iterator finishes.
func (c *HTTPCrawler) Crawl(ctx context.Context, target *Target) (*Iterator, error) {
	var opts HTTPOptions
	if err := decodeOptions(target.Options, &opts); err != nil {
		return nil, err
	}
	if opts.ServiceURL == "" {
		opts.ServiceURL = c.DefaultServiceURL
	}
	if opts.ServiceURL == "" {
		return nil, fmt.Errorf("http crawler requires a serviceUrl option")
	}

	crawlURL := fmt.Sprintf("%s/crawl?url=%s&maxDepth=%d&maxPages=%d",
		strings.TrimSuffix(opts.ServiceURL, "/"),
		url.QueryEscape(target.URI), target.MaxDepth, target.MaxPages)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crawlURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build crawl request: %w", err)
	}
	req.Header.Set("Content-Type", "application/jsonl")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to start crawl of %s: %w", target.URI, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to start crawl of %s: %s", target.URI, resp.Status)
	}

	c.logger.Info("started http crawl", "uri", target.URI, "max_pages", target.MaxPages)

	produce := func(ctx context.Context, yield func(*DiscoveredFile) bool) {
		c.consumeStream(ctx, target, resp, yield)
	}
	cleanup := func() {
		resp.Body.Close()
		c.logger.Debug("closed crawl stream", "uri", target.URI)
	}
	return NewIterator(ctx, produce, cleanup), nil
}

func (c *HTTPCrawler) consumeStream(
	ctx context.Context,
	target *Target,
	resp *http.Response,
	yield func(*DiscoveredFile) bool,
) {
	var (
		readMode string // "metadata" or "markdown"
		metadata []string
		markdown []string
		pages    int
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, markerBeginResult):
			readMode = "metadata"
			metadata = nil
			markdown = nil

		case strings.HasPrefix(line, markerEndResult):
			file := c.completeResult(ctx, target, metadata, markdown)
			readMode = ""
			metadata = nil
			markdown = nil
			if !yield(file) {
				return
			}
			if file.Err == nil {
				pages++
				if pages >= target.MaxPages {
					return
				}
			}

		case strings.HasPrefix(line, markerBeginMarkdown):
			readMode = "markdown"
			markdown = nil

		default:
			switch readMode {
			case "metadata":
				metadata = append(metadata, line)
			case "markdown":
				markdown = append(markdown, line)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Error("crawl stream failed", "uri", target.URI, "error", err)
		yield(&DiscoveredFile{Err: fmt.Errorf("crawl stream failed: %w", err)})
	}
}

// completeResult persists one finished metadata+markdown block. A block with
// no metadata yields an error record instead of aborting the stream.
func (c *HTTPCrawler) completeResult(
	ctx context.Context,
	target *Target,
	metadataLines, markdownLines []string,
) *DiscoveredFile {
	if len(metadataLines) == 0 {
		return &DiscoveredFile{Err: fmt.Errorf("empty metadata in crawl result")}
	}

	var meta resultMetadata
	if err := json.Unmarshal([]byte(strings.Join(metadataLines, "\n")), &meta); err != nil {
		return &DiscoveredFile{Err: fmt.Errorf("failed to decode result metadata: %w", err)}
	}
	if meta.Title == "" {
		meta.Title = "No title"
	}
	if meta.URL == "" {
		meta.URL = "no url"
	}

	markdown := strings.Join(markdownLines, "\n")
	if markdown == "" {
		markdown = "No content crawled"
	}

	content := []byte(markdown)
	size := int64(len(content))
	hash := contentHash(content)

	if rec, allowed := evaluateFilter(ctx, c.filter, c.saver, c.logger, target,
		meta.Title, meta.URL, size); !allowed {
		return rec
	}

	saved, err := c.saver.SaveCrawledFile(ctx, &SaveFileRequest{
		Name:        meta.Title,
		OriginURI:   meta.URL,
		LibraryID:   target.LibraryID,
		CrawlerID:   target.CrawlerID,
		MimeType:    "text/markdown",
		Size:        &size,
		Content:     content,
		ContentHash: &hash,
	})
	if err != nil {
		return &DiscoveredFile{Err: fmt.Errorf("failed to save crawled page %s: %w", meta.URL, err)}
	}

	return &DiscoveredFile{
		File:           saved.File,
		SkipProcessing: saved.SkipProcessing,
		WasUpdated:     saved.WasUpdated,
		Hints:          fmt.Sprintf("http crawler saved page %s", meta.URL),
	}
}
